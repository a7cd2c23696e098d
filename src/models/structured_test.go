package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStructureKindNormalizesTags(t *testing.T) {
	assert.Equal(t, StructureFinanciamento, ParseStructureKind("  financiamento "))
	assert.Equal(t, StructureFinanciamento, ParseStructureKind("FINANCIAMENTO"))
	assert.Equal(t, StructureFinanciamentoCustodia, ParseStructureKind("FINANCIAMENTO COM CUSTÓDIA"))
	assert.Equal(t, StructureFinanciamentoCustodia, ParseStructureKind("financiamento  com  custodia"))
	assert.Equal(t, StructureUnknown, ParseStructureKind("COLLAR"))
	assert.Equal(t, StructureUnknown, ParseStructureKind(""))
}
