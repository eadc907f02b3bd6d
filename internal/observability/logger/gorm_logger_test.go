package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperationFromSQL(t *testing.T) {
	cases := []struct {
		sql  string
		want string
	}{
		{sql: "SELECT * FROM projects", want: "SELECT"},
		{sql: "  insert into vendor_services (party_id) values (?)", want: "INSERT"},
		{sql: "WITH t AS (SELECT 1) UPDATE vendor_services SET usage_count = 0", want: "SELECT"},
		{sql: "DELETE FROM client_price_lists", want: "DELETE"},
		{sql: "PRAGMA foreign_keys = ON", want: "UNKNOWN"},
		{sql: "", want: "UNKNOWN"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, operationFromSQL(tc.sql), tc.sql)
	}
}
