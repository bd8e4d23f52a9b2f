package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOptionsMergesKeyValueAndBareFlags(t *testing.T) {
	dst := map[string]string{}
	ParseOptions(dst, "rw,noatime,uid=501,")
	assert.Equal(t, "", dst["rw"])
	assert.Equal(t, "", dst["noatime"])
	assert.Equal(t, "501", dst["uid"])
}

func TestParseOptionsIgnoresEmptyArg(t *testing.T) {
	dst := map[string]string{}
	ParseOptions(dst, "")
	assert.Empty(t, dst)
}
