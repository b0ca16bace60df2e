package config

import (
	"fmt"
	"os"
	"sort"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Table is one physical table in the hall.
type Table struct {
	ID   int    `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// Tables is the fixed table layout of a deployment.
type Tables struct {
	Tables []Table `yaml:"tables" json:"tables"`
}

const defaultTableCount = 12

// LoadTables reads the layout from TABLES_FILE, falling back to TABLE_COUNT
// numbered tables.
func LoadTables() (*Tables, error) {
	if path := os.Getenv("TABLES_FILE"); path != "" {
		return loadTablesFile(path)
	}

	n := GetEnvAsInt("TABLE_COUNT", defaultTableCount)
	log.Infof("no TABLES_FILE set, using %d numbered tables", n)
	return NumberedTables(n), nil
}

func NumberedTables(n int) *Tables {
	t := &Tables{Tables: make([]Table, 0, n)}
	for i := 1; i <= n; i++ {
		t.Tables = append(t.Tables, Table{ID: i, Name: fmt.Sprintf("Table %d", i)})
	}
	return t
}

func loadTablesFile(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tables file: %w", err)
	}
	return ParseTables(data)
}

func ParseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse tables file: %w", err)
	}
	if len(t.Tables) == 0 {
		return nil, fmt.Errorf("tables file defines no tables")
	}

	seen := make(map[int]bool, len(t.Tables))
	for i, tbl := range t.Tables {
		if tbl.ID <= 0 {
			return nil, fmt.Errorf("table %d: id must be positive, got %d", i, tbl.ID)
		}
		if seen[tbl.ID] {
			return nil, fmt.Errorf("duplicate table id %d", tbl.ID)
		}
		seen[tbl.ID] = true
		if tbl.Name == "" {
			t.Tables[i].Name = fmt.Sprintf("Table %d", tbl.ID)
		}
	}
	sort.Slice(t.Tables, func(i, j int) bool { return t.Tables[i].ID < t.Tables[j].ID })
	return &t, nil
}

// Has reports whether id is part of the layout.
func (t *Tables) Has(id int) bool {
	for _, tbl := range t.Tables {
		if tbl.ID == id {
			return true
		}
	}
	return false
}

func (t *Tables) Count() int {
	return len(t.Tables)
}
