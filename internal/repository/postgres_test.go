package repository

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"homerank/internal/model"
)

func TestWithSimpleProtocol(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"postgres://u:p@localhost:5432/db", "postgres://u:p@localhost:5432/db?prefer_simple_protocol=true"},
		{"postgres://u:p@localhost/db?sslmode=disable", "postgres://u:p@localhost/db?sslmode=disable&prefer_simple_protocol=true"},
		{"host=localhost dbname=db sslmode=disable", "host=localhost dbname=db sslmode=disable prefer_simple_protocol=true"},
		{"postgres://localhost/db?prefer_simple_protocol=true", "postgres://localhost/db?prefer_simple_protocol=true"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, withSimpleProtocol(tt.dsn))
	}
}

func TestListingColumnsMatchModel(t *testing.T) {
	tags := map[string]bool{}
	typ := reflect.TypeOf(model.Listing{})
	for i := 0; i < typ.NumField(); i++ {
		if tag := typ.Field(i).Tag.Get("db"); tag != "" {
			tags[tag] = true
		}
	}

	assert.Len(t, listingColumns, len(tags))
	for _, col := range listingColumns {
		assert.True(t, tags[col], col)
	}
}

func TestSchemaCoversListingColumns(t *testing.T) {
	var table string
	for _, stmt := range schemaStatements {
		if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS listings") {
			table = stmt
		}
	}
	for _, col := range listingColumns {
		assert.Contains(t, table, "\t"+col+" ", col)
	}
}
