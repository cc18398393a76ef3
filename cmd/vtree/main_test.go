package main

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/vango-dev/vtree/internal/errors"
)

func init() {
	color.NoColor = true
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--set", "log.level=error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionShort(t *testing.T) {
	out, err := execute(t, "version", "--short")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if strings.TrimSpace(out) != version {
		t.Errorf("version = %q, want %q", out, version)
	}
}

func TestConfigJSON(t *testing.T) {
	out, err := execute(t, "config", "--format", "json", "--set", "server.address=:9999")
	if err != nil {
		t.Fatalf("config error = %v", err)
	}
	var got struct {
		Server struct {
			Address string `json:"address"`
		} `json:"server"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got.Server.Address != ":9999" {
		t.Errorf("server.address = %q, want :9999", got.Server.Address)
	}
}

func TestBadOverride(t *testing.T) {
	_, err := execute(t, "config", "--set", "nonsense")
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Code != "E103" {
		t.Errorf("error = %v, want E103", err)
	}
}

func TestDemoList(t *testing.T) {
	out, err := execute(t, "demo", "--list")
	if err != nil {
		t.Fatalf("demo --list error = %v", err)
	}
	for _, name := range []string{"counter", "names", "fetch", "errors"} {
		if !strings.Contains(out, name) {
			t.Errorf("demo --list missing %q:\n%s", name, out)
		}
	}
}

func TestDemoUnknown(t *testing.T) {
	_, err := execute(t, "demo", "nope")
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Code != "E201" {
		t.Errorf("error = %v, want E201", err)
	}
}

func TestDemoCounter(t *testing.T) {
	out, err := execute(t, "demo", "counter")
	if err != nil {
		t.Fatalf("demo counter error = %v", err)
	}
	for _, want := range []string{"# initial render", "Count: 0", "Count: 1", "theme-dark"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestBenchJSON(t *testing.T) {
	out, err := execute(t, "bench", "--items", "20", "--rounds", "2", "--json", "--no-upload")
	if err != nil {
		t.Fatalf("bench error = %v", err)
	}
	var report struct {
		Workload struct {
			Items int `json:"items"`
		} `json:"workload"`
		Cases []struct {
			Name string `json:"name"`
		} `json:"cases"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if report.Workload.Items != 20 || len(report.Cases) != 2 {
		t.Errorf("report = %+v, want 20 items and 2 cases", report)
	}
}

func TestDisplayAddr(t *testing.T) {
	if got := displayAddr(":8080"); got != "localhost:8080" {
		t.Errorf("displayAddr(:8080) = %q", got)
	}
	if got := displayAddr("0.0.0.0:80"); got != "0.0.0.0:80" {
		t.Errorf("displayAddr(0.0.0.0:80) = %q", got)
	}
}
