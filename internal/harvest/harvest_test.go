package harvest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const simpleSrc = `package p

func Simple() {}

func Branchy(x int) int {
	if x > 0 && x < 10 {
		return 1
	}
	if x < 0 {
		return -1
	}
	return 0
}

type S struct{}

func (s *S) Method() {}
`

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func moduleNames(r *Report) []string {
	var names []string
	for _, m := range r.Modules {
		names = append(names, m.Name)
	}
	return names
}

func TestHarvest_ComputesBlocks(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.go": simpleSrc})

	report, err := Harvest(context.Background(), []string{dir}, Options{})
	require.NoError(t, err)
	require.Len(t, report.Modules, 1)

	mod := report.Modules[0]
	assert.Equal(t, filepath.Join(dir, "a.go"), mod.Name)
	assert.False(t, mod.Failed())
	require.Len(t, mod.Blocks, 3)

	assert.Equal(t, Block{Name: "Simple", Lineno: 3, Complexity: 1}, mod.Blocks[0])
	assert.Equal(t, Block{Name: "Branchy", Lineno: 5, Complexity: 4}, mod.Blocks[1])
	assert.Equal(t, "(*S).Method", mod.Blocks[2].Name)
	assert.Equal(t, 3, report.BlockCount())
}

func TestHarvest_ParseErrorBecomesMarker(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"a.go":   simpleSrc,
		"bad.go": "package p\n\nfunc {\n",
	})

	report, err := Harvest(context.Background(), []string{dir}, Options{})
	require.NoError(t, err)
	require.Len(t, report.Modules, 2)

	bad := report.Modules[1]
	assert.True(t, bad.Failed())
	assert.Nil(t, bad.Blocks)
	require.Len(t, report.Failures(), 1)
	assert.Equal(t, 3, report.BlockCount())
}

func TestHarvest_SkipsGeneratedFiles(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"a.go":     simpleSrc,
		"gen.pb.go": "// Code generated by protoc-gen-go. DO NOT EDIT.\n\npackage p\n\nfunc Gen() {}\n",
	})

	report, err := Harvest(context.Background(), []string{dir}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.go")}, moduleNames(report))

	report, err = Harvest(context.Background(), []string{dir}, Options{IncludeGenerated: true})
	require.NoError(t, err)
	assert.Len(t, report.Modules, 2)
}

func TestHarvest_ExcludeAndIgnore(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"a.go":               simpleSrc,
		"a_test.go":          "package p\n\nfunc TestX() {}\n",
		"internal/b.go":      "package b\n\nfunc B() {}\n",
		"vendor/v/v.go":      "package v\n\nfunc V() {}\n",
		".hidden/h.go":       "package h\n\nfunc H() {}\n",
		"testdata/src/t.go":  "package t\n\nfunc T() {}\n",
		"cmd/tool/main.go":   "package main\n\nfunc main() {}\n",
		"cmd/tool/README.md": "not go",
	})

	report, err := Harvest(context.Background(), []string{dir}, Options{
		Exclude: "*_test.go",
		Ignore:  "internal",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.go"),
		filepath.Join(dir, "cmd", "tool", "main.go"),
	}, moduleNames(report))
}

func TestHarvest_DiscoveryOrderAcrossPaths(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"x/z.go": "package x\n\nfunc Z() {}\n",
		"y/a.go": "package y\n\nfunc A() {}\n",
	})

	report, err := Harvest(context.Background(),
		[]string{filepath.Join(dir, "y"), filepath.Join(dir, "x")}, Options{Concurrency: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "y", "a.go"),
		filepath.Join(dir, "x", "z.go"),
	}, moduleNames(report))
}

func TestHarvest_OverlappingPathsListModulesOnce(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"b.go":     "package p\n\nfunc B() {}\n",
		"sub/a.go": "package sub\n\nfunc A(x int) {\n\tif x > 0 {\n\t}\n}\n",
	})
	sub := filepath.Join(dir, "sub")

	report, err := Harvest(context.Background(),
		[]string{dir, sub, filepath.Join(sub, "a.go"), sub + "/."}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "b.go"),
		filepath.Join(sub, "a.go"),
	}, moduleNames(report))
	assert.Equal(t, 2, report.BlockCount())

	data, err := json.Marshal(report)
	require.NoError(t, err)
	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 2)
}

func TestHarvest_SingleFilePath(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.go": simpleSrc})

	report, err := Harvest(context.Background(), []string{filepath.Join(dir, "a.go")}, Options{})
	require.NoError(t, err)
	require.Len(t, report.Modules, 1)
}

func TestHarvest_MissingPath(t *testing.T) {
	_, err := Harvest(context.Background(), []string{filepath.Join(t.TempDir(), "nope")}, Options{})
	assert.Error(t, err)
}

func TestHarvest_CanceledContext(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.go": simpleSrc})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Harvest(ctx, []string{dir}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReport_MarshalJSONKeepsOrder(t *testing.T) {
	r := &Report{}
	r.Add("z.go", Block{Name: "F", Lineno: 1, Complexity: 12})
	r.AddError("b.go", "expected 'IDENT'")
	r.Add("a.go")

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t,
		`{"z.go":[{"name":"F","lineno":1,"complexity":12,"rank":"C"}],"b.go":{"error":"expected 'IDENT'"},"a.go":[]}`,
		string(data))
}

func TestIsGenerated(t *testing.T) {
	assert.True(t, isGenerated([]byte("// Code generated by stringer. DO NOT EDIT.\n\npackage p\n")))
	assert.False(t, isGenerated([]byte("package p\n\n// Code generated by stringer. DO NOT EDIT.\n")))
	assert.False(t, isGenerated([]byte("// Package p does things.\npackage p\n")))
}
