package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kostichs/company-enricher/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	var buf bytes.Buffer
	formatRunsList(&buf, []model.Run{{
		ID:        "run-1",
		InputPath: "companies.csv",
		Total:     100,
		Emitted:   42,
		Status:    model.RunStatusRunning,
		CreatedAt: time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
	}})

	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "42/100")
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "companies.csv")
}
