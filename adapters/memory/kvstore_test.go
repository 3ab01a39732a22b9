package memory_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/artpar/erpkit/adapters/memory"
)

func TestKVStore_SetGet(t *testing.T) {
	store := memory.NewKVStore()
	ctx := context.Background()

	if _, ok, _ := store.Get(ctx, "p1", "k"); ok {
		t.Fatal("expected missing key")
	}

	value := []byte("v1")
	if err := store.Set(ctx, "p1", "k", value); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value[0] = 'x'

	got, ok, err := store.Get(ctx, "p1", "k")
	if err != nil || !ok {
		t.Fatalf("Get = ok %v, err %v", ok, err)
	}
	if string(got) != "v1" {
		t.Errorf("stored value aliased caller slice: %q", got)
	}

	got[0] = 'y'
	again, _, _ := store.Get(ctx, "p1", "k")
	if string(again) != "v1" {
		t.Errorf("returned value aliased store: %q", again)
	}

	if _, ok, _ := store.Get(ctx, "p2", "k"); ok {
		t.Error("namespaces not isolated")
	}
}

func TestKVStore_KeysAndDelete(t *testing.T) {
	store := memory.NewKVStore()
	ctx := context.Background()

	for _, k := range []string{"export-templates-b", "export-templates-a", "filter-presets-a"} {
		store.Set(ctx, "p", k, []byte("1"))
	}

	keys, err := store.Keys(ctx, "p", "export-templates-")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if want := []string{"export-templates-a", "export-templates-b"}; !reflect.DeepEqual(keys, want) {
		t.Errorf("Keys = %v, want %v", keys, want)
	}

	if err := store.Delete(ctx, "p", "export-templates-a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, "missing", "k"); err != nil {
		t.Fatalf("Delete on missing namespace: %v", err)
	}

	keys, _ = store.Keys(ctx, "p", "")
	if want := []string{"export-templates-b", "filter-presets-a"}; !reflect.DeepEqual(keys, want) {
		t.Errorf("Keys after delete = %v, want %v", keys, want)
	}
}
