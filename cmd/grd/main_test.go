package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"grd/internal/config"
	"grd/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	dir        string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithProject("OBRA", "ARQ"))
	cfg.Logging.Level = "error"
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		dir:        filepath.Join(cfg.Projects[0].Root, "ARQ"),
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestCLIDeliverFlow(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFile(t, filepath.Join(env.dir, "Doc_A1-R01.dwg"), 2048)

	out, _, err := runCLI(t, []string{"plan", "-p", "OBRA", "-d", "ARQ"}, env.configPath)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	requireContains(t, out, "Doc_A1-R01.dwg")
	requireContains(t, out, "first delivery")
	requireContains(t, out, "1 new, 0 revised")

	out, _, err = runCLI(t, []string{"deliver", "ap", "-p", "OBRA", "-d", "ARQ"}, env.configPath)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	requireContains(t, out, "Delivery AP 1 created")
	requireContains(t, out, "column AP 1, 1 new")

	out, _, err = runCLI(t, []string{"ledger", "ap", env.dir}, env.configPath)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	requireContains(t, out, "Doc_A1-R01.dwg (new)")

	out, _, err = runCLI(t, []string{"status", env.dir}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "1 official deliveries")
	requireContains(t, out, "active 1.AP - Entrega-1")
	requireContains(t, out, "== Preflight ==")

	out, _, err = runCLI(t, []string{"history", env.dir}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "AP 1")
	requireContains(t, out, "completed")

	out, _, err = runCLI(t, []string{"deliver", "ap", env.dir}, env.configPath)
	if err != nil {
		t.Fatalf("second deliver: %v", err)
	}
	requireContains(t, out, "Nothing to deliver")
}

func TestCLIDeliverRefusesOpenLedger(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFile(t, filepath.Join(env.dir, "Doc_A1-R01.dwg"), 10)
	testsupport.WriteFile(t, filepath.Join(env.dir, "GRD_ENTREGAS_AP.xlsx"), 10)
	testsupport.WriteFile(t, filepath.Join(env.dir, "~$GRD_ENTREGAS_AP.xlsx"), 10)

	_, stderr, err := runCLI(t, []string{"deliver", "ap", env.dir}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "preflight") {
		t.Fatalf("expected preflight error, got %v", err)
	}
	requireContains(t, stderr, "is open in another application")
	info, err := os.Stat(filepath.Join(env.dir, "GRD_ENTREGAS_AP.xlsx"))
	if err != nil || info.Size() != 10 {
		t.Fatalf("expected ledger untouched, got %v %v", info, err)
	}
}

func TestCLIPlanJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFile(t, filepath.Join(env.dir, "Planta-B-R02.pdf"), 10)

	out, _, err := runCLI(t, []string{"plan", env.dir, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("plan --json: %v", err)
	}
	var plan planJSON
	if err := json.Unmarshal([]byte(out), &plan); err != nil {
		t.Fatalf("decode plan: %v\n%s", err, out)
	}
	if !plan.First || len(plan.Files) != 1 {
		t.Fatalf("unexpected plan %+v", plan)
	}
	if f := plan.Files[0]; f.Revision != "R02" || f.Status != "new" {
		t.Fatalf("unexpected file %+v", f)
	}
}

func TestCLIPostProcess(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFile(t, filepath.Join(env.dir, "Doc_A1-R00.dwg"), 10)

	out, _, err := runCLI(t, []string{"post-process", "pe", env.dir}, env.configPath)
	if err != nil {
		t.Fatalf("post-process: %v", err)
	}
	requireContains(t, out, "Post-processed delivery PE 1")
	if _, err := os.Stat(filepath.Join(env.dir, "GRD_ENTREGAS_PE.xlsx")); err != nil {
		t.Fatalf("expected PE ledger: %v", err)
	}
}

func TestCLIUnknownProject(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"plan", "-p", "NOPE", "-d", "ARQ"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
	_, _, err = runCLI(t, []string{"plan", "-p", "OBRA"}, env.configPath)
	if err == nil {
		t.Fatal("expected error when --discipline is missing")
	}
}

func TestCLIRejectsUnknownType(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"deliver", "xx", env.dir}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "expected ap or pe") {
		t.Fatalf("expected type error, got %v", err)
	}
}

func TestCLIProjects(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"projects"}, env.configPath)
	if err != nil {
		t.Fatalf("projects: %v", err)
	}
	requireContains(t, out, "OBRA")
	requireContains(t, out, "ARQ")
	requireContains(t, out, "yes")
}
