package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSetDataDir(t *testing.T) {
	conf := NewDefaultConfig()

	conf.SetDataDir("/tmp/ballot")
	if want := filepath.Join("/tmp/ballot", DefaultBadgerFile); conf.DatabaseDir != want {
		t.Fatalf("DatabaseDir should be %s, not %s", want, conf.DatabaseDir)
	}
	if want := filepath.Join("/tmp/ballot", DefaultKeyfile); conf.Keyfile() != want {
		t.Fatalf("Keyfile should be %s, not %s", want, conf.Keyfile())
	}

	// an explicit database dir is left alone
	conf.DatabaseDir = "/var/db"
	conf.SetDataDir("/tmp/other")
	if conf.DatabaseDir != "/var/db" {
		t.Fatalf("DatabaseDir should not change, got %s", conf.DatabaseDir)
	}
}

func TestLogLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"info":    logrus.InfoLevel,
		"warn":    logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"unknown": logrus.DebugLevel,
	}
	for in, want := range cases {
		if got := LogLevel(in); got != want {
			t.Fatalf("LogLevel(%s) should be %v, not %v", in, want, got)
		}
	}
}

func TestLogFile(t *testing.T) {
	conf := NewDefaultConfig()
	conf.LogLevel = "info"
	conf.LogFile = filepath.Join(t.TempDir(), "ballot.log")

	conf.Logger().Info("written to file")

	data, err := os.ReadFile(conf.LogFile)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Fatalf("log file should contain the message, got %q", data)
	}
}
