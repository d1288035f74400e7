// Command shadow_compare replays a fixed set of read endpoints against both
// the legacy school app and this API and reports status and body differences.
// Volatile fields (timestamps, tokens) are stripped before comparing. The
// process exits non-zero when a critical target diverges.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"
)

type target struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Critical bool   `json:"critical"`
}

type config struct {
	Targets []target `json:"targets"`
}

type comparison struct {
	Target       target
	LegacyStatus int
	GoStatus     int
	StatusMatch  bool
	BodyMatch    bool
	Err          error
}

// volatileKeys are dropped from both sides before the deep compare: they
// legitimately differ between two healthy deployments.
var volatileKeys = map[string]struct{}{
	"created_at":    {},
	"updated_at":    {},
	"issued_at":     {},
	"access_token":  {},
	"refresh_token": {},
	"request_id":    {},
}

func main() {
	var (
		goBase      string
		legacyBase  string
		goToken     string
		legacyToken string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&goBase, "go-base", "http://localhost:8080", "Go API base URL")
	flag.StringVar(&legacyBase, "legacy-base", "http://localhost:3000", "legacy app base URL")
	flag.StringVar(&goToken, "go-token", "", "bearer token for the Go API")
	flag.StringVar(&legacyToken, "legacy-token", "", "bearer token for the legacy app")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "shadow_compare", "targets.json"), "path to JSON targets file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var breaking, optionalDiff int

	for _, t := range targets {
		comp := compareTarget(client, goBase, goToken, legacyBase, legacyToken, t)
		diverged := comp.Err != nil || !comp.StatusMatch || !comp.BodyMatch
		if diverged {
			if t.Critical {
				breaking++
			} else {
				optionalDiff++
			}
		}
		printComparison(comp)
	}

	fmt.Printf("breaking diffs: %d, optional diffs: %d\n", breaking, optionalDiff)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

func compareTarget(client *http.Client, goBase, goToken, legacyBase, legacyToken string, tgt target) comparison {
	comp := comparison{Target: tgt}

	goStatus, goBody, err := fetch(client, goBase, goToken, tgt)
	if err != nil {
		comp.Err = fmt.Errorf("go request failed: %w", err)
		return comp
	}
	legacyStatus, legacyBody, err := fetch(client, legacyBase, legacyToken, tgt)
	if err != nil {
		comp.Err = fmt.Errorf("legacy request failed: %w", err)
		return comp
	}

	comp.GoStatus = goStatus
	comp.LegacyStatus = legacyStatus
	comp.StatusMatch = goStatus == legacyStatus
	comp.BodyMatch = bodiesEqual(goBody, legacyBody)
	return comp
}

func fetch(client *http.Client, base, token string, tgt target) (int, []byte, error) {
	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req, err := http.NewRequest(method, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return 0, nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func bodiesEqual(a, b []byte) bool {
	if bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b)) {
		return true
	}

	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	normalize(&aj)
	normalize(&bj)
	return reflect.DeepEqual(aj, bj)
}

func normalize(v *interface{}) {
	switch val := (*v).(type) {
	case map[string]interface{}:
		for k := range val {
			if _, volatile := volatileKeys[k]; volatile {
				delete(val, k)
			}
		}
		for k, v2 := range val {
			normalize(&v2)
			val[k] = v2
		}
	case []interface{}:
		for i, v2 := range val {
			normalize(&v2)
			val[i] = v2
		}
	}
}

func printComparison(comp comparison) {
	label := fmt.Sprintf("%s %s", comp.Target.Method, comp.Target.Path)
	switch {
	case comp.Err != nil:
		fmt.Printf("ERROR  %-45s %v\n", label, comp.Err)
	case !comp.StatusMatch:
		fmt.Printf("DIFF   %-45s status go=%d legacy=%d\n", label, comp.GoStatus, comp.LegacyStatus)
	case !comp.BodyMatch:
		fmt.Printf("DIFF   %-45s body mismatch\n", label)
	default:
		fmt.Printf("OK     %-45s %d\n", label, comp.GoStatus)
	}
}
