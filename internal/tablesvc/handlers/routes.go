package handlers

import (
	"os"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) SetRoutes(r chi.Router) {
	r.Route("/v1/games", func(r chi.Router) {
		r.Get("/table/{tableId}", h.ListGames)
		r.Post("/table/{tableId}/start", h.StartGame)
		r.Post("/table/{tableId}/end", h.EndGame)
		r.Post("/table/{tableId}/force-start", h.ForceStart)
		r.Post("/table/{tableId}/force-end", h.ForceEnd)
		r.Post("/table/{tableId}/test-message", h.SendTestMessage)
		r.Post("/table/{tableId}/archive", h.ArchiveTable)

		r.Post("/{gameId}/finish", h.FinishGame)
		r.Post("/{gameId}/archive", h.ArchiveGame)
		r.Delete("/{gameId}", h.DeleteGame)
	})

	r.Route("/v1/records", func(r chi.Router) {
		r.Get("/", h.ListRecords)
		r.Delete("/{recordId}", h.DeleteRecord)
	})

	r.Route("/v1/settings", func(r chi.Router) {
		r.Get("/fee", h.GetFee)

		// Secure routes
		r.Group(func(r chi.Router) {
			if h.tokenAuth != nil {
				r.Use(jwtauth.Verifier(h.tokenAuth))
				r.Use(jwtauth.Authenticator)
			}
			r.Put("/fee", h.UpdateFee)
		})
	})
}

// InitAuth enables bearer token checks on settings writes when JWT_SECRET_KEY is set.
func InitAuth() *jwtauth.JWTAuth {
	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		log.Warn("JWT_SECRET_KEY not set, settings writes are not protected")
		return nil
	}
	tokenAuth := jwtauth.New("HS256", []byte(jwtKey), nil)

	expirationTime := time.Now().Add(7 * 24 * time.Hour).Unix()

	_, tokenString, err := tokenAuth.Encode(map[string]interface{}{
		"role": "admin",
		"exp":  expirationTime,
	})
	if err == nil {
		log.Debugf("Admin JWT for testing: %s", tokenString)
	}
	return tokenAuth
}
