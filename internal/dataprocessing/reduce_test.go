package dataprocessing

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruthy(t *testing.T) {
	tests := []struct {
		name     string
		value    Value
		expected bool
	}{
		{name: "missing", value: Missing(), expected: false},
		{name: "zero number", value: Number(0), expected: false},
		{name: "nonzero number", value: Number(1), expected: true},
		{name: "lowercase true", value: Text("true"), expected: true},
		{name: "capitalized true", value: Text("True"), expected: true},
		{name: "numeric text", value: Text("1"), expected: true},
		{name: "false text", value: Text("false"), expected: false},
		{name: "arbitrary text", value: Text("BOS"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Truthy(tt.value))
		})
	}
}

func TestDropExactDuplicates(t *testing.T) {
	reducer := NewReducer(nil)

	table := NewTable([]string{"player", "pts"})
	table.AppendRow([]Value{Text("Jayson Tatum"), Number(30)})
	table.AppendRow([]Value{Text("Trae Young"), Number(28)})
	table.AppendRow([]Value{Text("Jayson Tatum"), Number(30)})
	table.AppendRow([]Value{Text("Trae Young"), Number(22)})

	dropped := reducer.DropExactDuplicates(table)

	assert.Equal(t, 1, dropped)
	expected := [][]string{
		{"player", "pts"},
		{"Jayson Tatum", "30"},
		{"Trae Young", "28"},
		{"Trae Young", "22"},
	}
	if diff := cmp.Diff(expected, table.Records()); diff != "" {
		t.Errorf("unexpected survivors (-want +got):\n%s", diff)
	}

	t.Run("idempotent", func(t *testing.T) {
		assert.Zero(t, reducer.DropExactDuplicates(table))
		assert.Equal(t, 3, table.NumRows())
	})
}

func TestDropExactDuplicatesRespectsKind(t *testing.T) {
	reducer := NewReducer(nil)

	table := NewTable([]string{"v"})
	table.AppendRow([]Value{Text("1")})
	table.AppendRow([]Value{Number(1)})
	table.AppendRow([]Value{Missing()})
	table.AppendRow([]Value{Text("")})

	dropped := reducer.DropExactDuplicates(table)

	assert.Zero(t, dropped, "cells rendering alike but differing in kind are distinct")
	assert.Equal(t, 4, table.NumRows())
}

func TestPruneSparseRows(t *testing.T) {
	core := []string{"height", "weight", "position", "birthdate"}

	build := func() *Table {
		table := NewTable([]string{"player", "is_retired", "height", "weight", "position", "birthdate"})
		table.AppendRow([]Value{Text("Complete Retiree"), Text("true"), Number(80), Number(210), Text("F"), Text("1970-01-01")})
		table.AppendRow([]Value{Text("Sparse Retiree"), Text("true"), Missing(), Missing(), Missing(), Text("1970-01-01")})
		table.AppendRow([]Value{Text("Sparse Active"), Text("false"), Missing(), Missing(), Missing(), Missing()})
		return table
	}

	t.Run("drops sparse flagged rows", func(t *testing.T) {
		reducer := NewReducer(nil)
		table := build()

		dropped := reducer.PruneSparseRows(table, "is_retired", core, 3)

		assert.Equal(t, 1, dropped)
		require.Equal(t, 2, table.NumRows())
		assert.Equal(t, "Complete Retiree", table.At(0, "player").String())
		assert.Equal(t, "Sparse Active", table.At(1, "player").String(), "unflagged rows survive any sparsity")
	})

	t.Run("threshold not met", func(t *testing.T) {
		reducer := NewReducer(nil)
		table := build()

		dropped := reducer.PruneSparseRows(table, "is_retired", core, 4)

		assert.Zero(t, dropped)
		assert.Equal(t, 3, table.NumRows())
	})

	t.Run("missing flag column is a no-op", func(t *testing.T) {
		reducer := NewReducer(nil)
		table := build()

		dropped := reducer.PruneSparseRows(table, "not_there", core, 1)

		assert.Zero(t, dropped)
		assert.Equal(t, 3, table.NumRows())
	})
}
