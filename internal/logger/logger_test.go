// Copyright 2023 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logger

import (
	"bytes"
	"log/slog"
	"os"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

const (
	textTraceString   = `^time="[0-9/:. ]{26}" severity=TRACE message="TestLogs: www.traceExample.com"`
	textDebugString   = `^time="[0-9/:. ]{26}" severity=DEBUG message="TestLogs: www.debugExample.com"`
	textInfoString    = `^time="[0-9/:. ]{26}" severity=INFO message="TestLogs: www.infoExample.com"`
	textWarningString = `^time="[0-9/:. ]{26}" severity=WARNING message="TestLogs: www.warningExample.com"`
	textErrorString   = `^time="[0-9/:. ]{26}" severity=ERROR message="TestLogs: www.errorExample.com"`

	jsonTraceString   = `^{"timestamp":{"seconds":\d{10},"nanos":\d{0,9}},"severity":"TRACE","message":"TestLogs: www.traceExample.com"}`
	jsonDebugString   = `^{"timestamp":{"seconds":\d{10},"nanos":\d{0,9}},"severity":"DEBUG","message":"TestLogs: www.debugExample.com"}`
	jsonInfoString    = `^{"timestamp":{"seconds":\d{10},"nanos":\d{0,9}},"severity":"INFO","message":"TestLogs: www.infoExample.com"}`
	jsonWarningString = `^{"timestamp":{"seconds":\d{10},"nanos":\d{0,9}},"severity":"WARNING","message":"TestLogs: www.warningExample.com"}`
	jsonErrorString   = `^{"timestamp":{"seconds":\d{10},"nanos":\d{0,9}},"severity":"ERROR","message":"TestLogs: www.errorExample.com"}`
)

type LoggerTest struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTest))
}

func redirectLogsToGivenBuffer(buf *bytes.Buffer, format string, level string) {
	pl := new(slog.LevelVar)
	defaultLogger = slog.New(&severityHandler{w: buf, level: pl, prefix: "TestLogs: ", json: format == "json"})
	setLoggingLevel(level, pl)
}

func fetchLogOutputForSpecifiedSeverityLevel(format, level string, functions []func()) []string {
	var buf bytes.Buffer
	redirectLogsToGivenBuffer(&buf, format, level)

	var output []string
	for _, f := range functions {
		f()
		output = append(output, buf.String())
		buf.Reset()
	}
	return output
}

func getTestLoggingFunctions() []func() {
	return []func(){
		func() { Tracef("www.traceExample.com") },
		func() { Debugf("www.debugExample.com") },
		func() { Infof("www.infoExample.com") },
		func() { Warnf("www.warningExample.com") },
		func() { Errorf("www.errorExample.com") },
	}
}

func validateOutput(t *testing.T, expected []string, output []string) {
	for i := range output {
		if expected[i] == "" {
			assert.Equal(t, expected[i], output[i])
		} else {
			assert.True(t, regexp.MustCompile(expected[i]).MatchString(output[i]))
		}
	}
}

func validateLogOutputAtSpecifiedFormatAndSeverity(t *testing.T, format string, level string, expectedOutput []string) {
	output := fetchLogOutputForSpecifiedSeverityLevel(format, level, getTestLoggingFunctions())
	validateOutput(t, expectedOutput, output)
}

func (t *LoggerTest) TestTextFormatLogs_LogLevelOFF() {
	validateLogOutputAtSpecifiedFormatAndSeverity(t.T(), "text", OFF, []string{"", "", "", "", ""})
}

func (t *LoggerTest) TestTextFormatLogs_LogLevelERROR() {
	validateLogOutputAtSpecifiedFormatAndSeverity(t.T(), "text", ERROR, []string{"", "", "", "", textErrorString})
}

func (t *LoggerTest) TestTextFormatLogs_LogLevelWARNING() {
	validateLogOutputAtSpecifiedFormatAndSeverity(t.T(), "text", WARNING, []string{"", "", "", textWarningString, textErrorString})
}

func (t *LoggerTest) TestTextFormatLogs_LogLevelINFO() {
	validateLogOutputAtSpecifiedFormatAndSeverity(t.T(), "text", INFO, []string{"", "", textInfoString, textWarningString, textErrorString})
}

func (t *LoggerTest) TestTextFormatLogs_LogLevelDEBUG() {
	validateLogOutputAtSpecifiedFormatAndSeverity(t.T(), "text", DEBUG, []string{"", textDebugString, textInfoString, textWarningString, textErrorString})
}

func (t *LoggerTest) TestTextFormatLogs_LogLevelTRACE() {
	validateLogOutputAtSpecifiedFormatAndSeverity(t.T(), "text", TRACE, []string{textTraceString, textDebugString, textInfoString, textWarningString, textErrorString})
}

func (t *LoggerTest) TestJSONFormatLogs_LogLevelOFF() {
	validateLogOutputAtSpecifiedFormatAndSeverity(t.T(), "json", OFF, []string{"", "", "", "", ""})
}

func (t *LoggerTest) TestJSONFormatLogs_LogLevelERROR() {
	validateLogOutputAtSpecifiedFormatAndSeverity(t.T(), "json", ERROR, []string{"", "", "", "", jsonErrorString})
}

func (t *LoggerTest) TestJSONFormatLogs_LogLevelTRACE() {
	validateLogOutputAtSpecifiedFormatAndSeverity(t.T(), "json", TRACE, []string{jsonTraceString, jsonDebugString, jsonInfoString, jsonWarningString, jsonErrorString})
}

func (t *LoggerTest) TestSetLoggingLevel() {
	testData := []struct {
		inputLevel           string
		expectedProgramLevel slog.Level
	}{
		{TRACE, LevelTrace},
		{DEBUG, LevelDebug},
		{WARNING, LevelWarn},
		{ERROR, LevelError},
		{OFF, LevelOff},
	}

	for _, test := range testData {
		pl := new(slog.LevelVar)
		setLoggingLevel(test.inputLevel, pl)
		assert.Equal(t.T(), test.expectedProgramLevel, pl.Level())
	}
}

func (t *LoggerTest) TestInitLogFile() {
	path := os.TempDir() + "/sqlitefs-logger-test.log"
	defer os.Remove(path)

	err := InitLogFile(path, DEBUG, "text", DefaultLogRotateConfig())

	assert.NoError(t.T(), err)
	assert.Equal(t.T(), path, defaultLoggerFactory.file.Name())
	assert.Equal(t.T(), "text", defaultLoggerFactory.format)
	assert.Equal(t.T(), DEBUG, defaultLoggerFactory.level)
}

func (t *LoggerTest) TestSetLogFormat() {
	SetLogFormat("json")
	assert.Equal(t.T(), "json", defaultLoggerFactory.format)

	var buf bytes.Buffer
	redirectLogsToGivenBuffer(&buf, "json", INFO)
	Infof("www.infoExample.com")
	assert.True(t.T(), regexp.MustCompile(jsonInfoString).MatchString(buf.String()))
}
