package trigbits

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func testBits() *Bits {
	b := NewBits()
	b.TrigMap["alca1"] = "path1,path2"
	b.TrigMap["alca2"] = "path3"
	return b
}

func TestRemoveKeys(t *testing.T) {
	b := testBits()
	if err := RemoveKeys(b.TrigMap, []string{"alca1"}); err != nil {
		t.Fatalf("RemoveKeys: %v", err)
	}
	if _, ok := b.TrigMap["alca1"]; ok {
		t.Error("expected alca1 to be removed")
	}
	if len(b.TrigMap) != 1 {
		t.Errorf("expected 1 entry left, got %d", len(b.TrigMap))
	}
}

func TestRemoveKeys_MissingKeyAborts(t *testing.T) {
	b := testBits()
	err := RemoveKeys(b.TrigMap, []string{"alca1", "nope", "alca2"})
	if err == nil {
		t.Fatal("expected an error for a missing key")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
	if cfgErr.Op != "remove" || cfgErr.Key != "nope" {
		t.Errorf("expected remove/nope, got %s/%s", cfgErr.Op, cfgErr.Key)
	}

	// The pass is not atomic: the removal before the failure stays
	// applied, the one after it was never reached.
	if _, ok := b.TrigMap["alca1"]; ok {
		t.Error("expected alca1 removed before the failure")
	}
	if _, ok := b.TrigMap["alca2"]; !ok {
		t.Error("expected alca2 untouched after the failure")
	}
}

func TestAddEntries(t *testing.T) {
	b := testBits()
	paths := []string{"pathA", "pathB"}
	if err := AddEntries(b, []AddList{{ListName: "alca3", Paths: paths}}); err != nil {
		t.Fatalf("AddEntries: %v", err)
	}
	got := DecomposePaths(b.TrigMap["alca3"])
	if !reflect.DeepEqual(got, paths) {
		t.Errorf("expected %v, got %v", paths, got)
	}
}

func TestAddEntries_ExistingKeyFails(t *testing.T) {
	b := testBits()
	err := AddEntries(b, []AddList{{ListName: "alca1", Paths: []string{"p"}}})
	if err == nil {
		t.Fatal("expected an error for a duplicate key")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
	if cfgErr.Op != "add" || cfgErr.Key != "alca1" {
		t.Errorf("expected add/alca1, got %s/%s", cfgErr.Op, cfgErr.Key)
	}
	if b.TrigMap["alca1"] != "path1,path2" {
		t.Errorf("expected alca1 unchanged, got %q", b.TrigMap["alca1"])
	}
}

func TestRenameKeys(t *testing.T) {
	b := testBits()
	warnings := RenameKeys(b.TrigMap, []KeyRename{{From: "alca1", To: "alca1_new"}})
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if _, ok := b.TrigMap["alca1"]; ok {
		t.Error("expected alca1 to be gone")
	}
	if b.TrigMap["alca1_new"] != "path1,path2" {
		t.Errorf("expected value carried over, got %q", b.TrigMap["alca1_new"])
	}
}

func TestRenameKeys_MissingKeyWarnsAndContinues(t *testing.T) {
	b := testBits()
	warnings := RenameKeys(b.TrigMap, []KeyRename{
		{From: "nope", To: "whatever"},
		{From: "alca2", To: "alca2_new"},
	})
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d: %v", len(warnings), warnings)
	}
	if !strings.Contains(warnings[0], `"nope"`) {
		t.Errorf("expected the warning to name the key, got %q", warnings[0])
	}
	if _, ok := b.TrigMap["whatever"]; ok {
		t.Error("expected the skipped rename to leave no trace")
	}
	// The later rename still went through.
	if b.TrigMap["alca2_new"] != "path3" {
		t.Errorf("expected alca2 renamed, got map %v", b.TrigMap)
	}
}

func TestApplyTo_PassOrder(t *testing.T) {
	// Remove runs before add, so a key can be removed and re-added
	// with new paths in a single spec.
	b := testBits()
	spec := &UpdateSpec{
		Tag:      "test",
		FirstRun: 1,
		Remove:   []string{"alca1"},
		Add:      []AddList{{ListName: "alca1", Paths: []string{"newPath"}}},
	}
	warnings, err := spec.ApplyTo(b)
	if err != nil {
		t.Fatalf("ApplyTo: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if b.TrigMap["alca1"] != "newPath" {
		t.Errorf("expected alca1 replaced, got %q", b.TrigMap["alca1"])
	}
}

func TestApplyTo_EndToEnd(t *testing.T) {
	b := NewBits()
	b.TrigMap["alca1"] = "path1,path2"

	spec := &UpdateSpec{
		Tag:      "test",
		FirstRun: 100,
		Add:      []AddList{{ListName: "alca2", Paths: []string{"pathA", "pathB"}}},
		Rename:   []KeyRename{{From: "alca1", To: "alca1_renamed"}},
	}
	warnings, err := spec.ApplyTo(b)
	if err != nil {
		t.Fatalf("ApplyTo: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}

	want := TriggerMap{
		"alca1_renamed": "path1,path2",
		"alca2":         "pathA,pathB",
	}
	if !reflect.DeepEqual(b.TrigMap, want) {
		t.Errorf("expected %v, got %v", want, b.TrigMap)
	}
}

func TestApplyTo_DuplicateAddAborts(t *testing.T) {
	b := NewBits()
	spec := &UpdateSpec{
		Tag:        "test",
		FirstRun:   1,
		StartEmpty: true,
		Add: []AddList{
			{ListName: "x", Paths: []string{"p"}},
			{ListName: "x", Paths: []string{"p"}},
		},
	}
	_, err := spec.ApplyTo(b)
	if err == nil {
		t.Fatal("expected the second add of x to fail")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
	if cfgErr.Key != "x" {
		t.Errorf("expected key x, got %s", cfgErr.Key)
	}
}

func TestUpdateSpec_Validate(t *testing.T) {
	ctx := context.Background()

	valid := &UpdateSpec{Tag: "t", FirstRun: 1}
	if err := valid.Validate(ctx); err != nil {
		t.Fatalf("expected valid spec to pass, got %v", err)
	}

	missingTag := &UpdateSpec{FirstRun: 1}
	if err := missingTag.Validate(ctx); err == nil {
		t.Error("expected missing tag to fail")
	}

	zeroRun := &UpdateSpec{Tag: "t"}
	if err := zeroRun.Validate(ctx); err == nil {
		t.Error("expected zero first_run to fail")
	}

	emptyPaths := &UpdateSpec{
		Tag:      "t",
		FirstRun: 1,
		Add:      []AddList{{ListName: "a"}},
	}
	if err := emptyPaths.Validate(ctx); err == nil {
		t.Error("expected an add list without paths to fail")
	}
}

func TestUpdateSpec_Bounded(t *testing.T) {
	open := &UpdateSpec{Tag: "t", FirstRun: 1, LastRun: -1}
	if open.Bounded() {
		t.Error("expected last_run < 1 to mean open-ended")
	}
	closed := &UpdateSpec{Tag: "t", FirstRun: 1, LastRun: 200}
	if !closed.Bounded() {
		t.Error("expected last_run 200 to be bounded")
	}
}
