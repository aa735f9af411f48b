/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: report_writer_test.go
Description: Tests for the JSON report writer.
*/

package utils_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kleascm/regular-learner/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWriteReport tests the report layout and content
func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	report := map[string]int{"rounds": 3, "states": 2}

	path, err := utils.WriteReport(dir, "angluin", "s1", report)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "angluin"), filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, "_s1.json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded map[string]int
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, report, decoded)

	_, err = utils.WriteReport(dir, "", "s1", report)
	assert.Error(t, err)
	_, err = utils.WriteReport(dir, "angluin", "s1", func() {})
	assert.Error(t, err)
}
