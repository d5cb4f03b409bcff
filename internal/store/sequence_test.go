package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNextNumber(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	require.Equal(t, "REQ-2024-001", NextNumber("REQ", nil, now))
	require.Equal(t, "REQ-2024-003", NextNumber("REQ", []string{"REQ-2024-001", "REQ-2023-009", "REQ-2024-002"}, now))

	existing := make([]string, 0, 1000)
	for i := 1; i <= 999; i++ {
		existing = append(existing, fmt.Sprintf("PC-2024-%03d", i))
	}
	require.Equal(t, "PC-2024-1000", NextNumber("PC", existing, now))
}

func TestNextNumberIsStableWithoutInsert(t *testing.T) {
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	existing := []string{"COT-2025-001"}
	require.Equal(t, NextNumber("COT", existing, now), NextNumber("COT", existing, now))
}
