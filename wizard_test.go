package wizard

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

type person struct {
	ID    int    `wiz:"id,required"`
	Name  string `wiz:",alias=full_name"`
	Email *string
}

func TestForRejectsNonStruct(t *testing.T) {
	_, err := For[int]()
	if err == nil {
		t.Fatal("For[int] should fail")
	}
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestRoundTrip(t *testing.T) {
	w, err := For[person]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	email := "a@example.com"
	original := person{ID: 7, Name: "Alice", Email: &email}

	tree, err := w.ToTree(context.Background(), original)
	if err != nil {
		t.Fatalf("ToTree error: %v", err)
	}
	m := tree.(map[string]any)
	if m["id"] != int64(7) || m["name"] != "Alice" || m["email"] != "a@example.com" {
		t.Errorf("tree = %v", m)
	}

	got, err := w.FromTree(context.Background(), tree)
	if err != nil {
		t.Fatalf("FromTree error: %v", err)
	}
	if !reflect.DeepEqual(*got, original) {
		t.Errorf("round trip = %+v, want %+v", *got, original)
	}
}

func TestOptionalCollapsesToNull(t *testing.T) {
	w, err := For[person]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	tree, err := w.ToTree(context.Background(), person{ID: 1, Name: "n"})
	if err != nil {
		t.Fatalf("ToTree error: %v", err)
	}
	if v, ok := tree.(map[string]any)["email"]; !ok || v != nil {
		t.Errorf("email = %v (present %v), want explicit null", v, ok)
	}

	got, err := w.FromTree(context.Background(), map[string]any{"id": 1, "email": nil})
	if err != nil {
		t.Fatalf("FromTree error: %v", err)
	}
	if got.Email != nil {
		t.Errorf("Email = %v, want nil", *got.Email)
	}
}

func TestRequiredFieldMissing(t *testing.T) {
	w, err := For[person]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	_, err = w.FromTree(context.Background(), map[string]any{"name": "x"})
	if err == nil {
		t.Fatal("FromTree should fail without id")
	}
	if !errors.Is(err, ErrMissingFields) {
		t.Fatalf("error = %v, want ErrMissingFields", err)
	}

	var mf *MissingFieldsError
	if !errors.As(err, &mf) {
		t.Fatalf("error type = %T", err)
	}
	if len(mf.Fields) != 1 || mf.Fields[0] != "ID" {
		t.Errorf("Fields = %v, want [ID]", mf.Fields)
	}
	if mf.Schema != "person" {
		t.Errorf("Schema = %q, want person", mf.Schema)
	}
}

func TestFromTreeNilSource(t *testing.T) {
	w, err := For[person]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	_, err = w.FromTree(context.Background(), nil)
	if !errors.Is(err, ErrMissingSource) {
		t.Errorf("error = %v, want ErrMissingSource", err)
	}
}

func TestFromTreeWrongShape(t *testing.T) {
	w, err := For[person]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	_, err = w.FromTree(context.Background(), []any{1, 2})
	if !errors.Is(err, ErrParse) {
		t.Errorf("error = %v, want ErrParse", err)
	}
}

func TestDefaultLiteral(t *testing.T) {
	type job struct {
		Name    string
		Retries int  `wiz:",default=3"`
		Active  bool `wiz:",default=true"`
	}

	w, err := For[job]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	got, err := w.FromTree(context.Background(), map[string]any{"name": "sync"})
	if err != nil {
		t.Fatalf("FromTree error: %v", err)
	}
	if got.Retries != 3 {
		t.Errorf("Retries = %d, want default 3", got.Retries)
	}
	if !got.Active {
		t.Error("Active should default to true")
	}

	// Present keys beat the default.
	got, err = w.FromTree(context.Background(), map[string]any{"name": "sync", "retries": 0})
	if err != nil {
		t.Fatalf("FromTree error: %v", err)
	}
	if got.Retries != 0 {
		t.Errorf("Retries = %d, want explicit 0", got.Retries)
	}
}

func TestDefaultFactory(t *testing.T) {
	type doc struct {
		Title string
		Tags  []string
	}

	w, err := For[doc](WithDefaultFactory("Tags", func() any {
		return []string{"untagged"}
	}))
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	got, err := w.FromTree(context.Background(), map[string]any{"title": "t"})
	if err != nil {
		t.Fatalf("FromTree error: %v", err)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "untagged" {
		t.Errorf("Tags = %v, want factory output", got.Tags)
	}

	// Each absent load gets a fresh value, not a shared one.
	other, err := w.FromTree(context.Background(), map[string]any{"title": "u"})
	if err != nil {
		t.Fatalf("FromTree error: %v", err)
	}
	other.Tags[0] = "mutated"
	if got.Tags[0] != "untagged" {
		t.Error("factory values must not be shared between loads")
	}
}

func TestDefaultLiteralAndFactoryConflict(t *testing.T) {
	type bad struct {
		N int `wiz:",default=1"`
	}

	_, err := For[bad](WithDefaultFactory("N", func() any { return 2 }))
	if err == nil {
		t.Fatal("For should reject default literal plus factory")
	}
	if !errors.Is(err, ErrInvalidTag) {
		t.Errorf("error = %v, want ErrInvalidTag", err)
	}
}

func TestOmitEmpty(t *testing.T) {
	type entry struct {
		Key   string
		Notes string `wiz:",omitempty"`
	}

	w, err := For[entry]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	tree, err := w.ToTree(context.Background(), entry{Key: "k"})
	if err != nil {
		t.Fatalf("ToTree error: %v", err)
	}
	if _, ok := tree.(map[string]any)["notes"]; ok {
		t.Error("empty notes should be omitted")
	}

	tree, err = w.ToTree(context.Background(), entry{Key: "k", Notes: "hi"})
	if err != nil {
		t.Fatalf("ToTree error: %v", err)
	}
	if tree.(map[string]any)["notes"] != "hi" {
		t.Error("non-empty notes should be kept")
	}
}

func TestSkipDefaults(t *testing.T) {
	type opts struct {
		Level int    `wiz:",default=5"`
		Mode  string `wiz:",default=auto,skipdefault"`
	}

	w, err := For[opts]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	// skipdefault on the field applies without any call option.
	tree, err := w.ToTree(context.Background(), opts{Level: 5, Mode: "auto"})
	if err != nil {
		t.Fatalf("ToTree error: %v", err)
	}
	m := tree.(map[string]any)
	if _, ok := m["mode"]; ok {
		t.Error("mode equal to its default should be dropped")
	}
	if m["level"] != int64(5) {
		t.Error("level should be kept without skipdefault")
	}

	// The per-call option extends the skip to every defaulted field.
	tree, err = w.ToTree(context.Background(), opts{Level: 5, Mode: "manual"}, SkipDefaults(true))
	if err != nil {
		t.Fatalf("ToTree error: %v", err)
	}
	m = tree.(map[string]any)
	if _, ok := m["level"]; ok {
		t.Error("level equal to its default should be dropped under SkipDefaults")
	}
	if m["mode"] != "manual" {
		t.Error("non-default mode should be kept")
	}
}

func TestSkipFunc(t *testing.T) {
	type account struct {
		User   string
		Secret string
	}

	w, err := For[account](WithSkipFunc("Secret", func(v any) bool {
		return true
	}))
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	tree, err := w.ToTree(context.Background(), account{User: "u", Secret: "hunter2"})
	if err != nil {
		t.Fatalf("ToTree error: %v", err)
	}
	if _, ok := tree.(map[string]any)["secret"]; ok {
		t.Error("secret should be skipped")
	}
}

func TestExclude(t *testing.T) {
	w, err := For[person]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	tree, err := w.ToTree(context.Background(), person{ID: 1, Name: "n"}, Exclude("email", "name"))
	if err != nil {
		t.Fatalf("ToTree error: %v", err)
	}
	m := tree.(map[string]any)
	if _, ok := m["email"]; ok {
		t.Error("excluded email should be absent")
	}
	if _, ok := m["name"]; ok {
		t.Error("excluded name should be absent")
	}
	if m["id"] != int64(1) {
		t.Error("id should survive")
	}
}

func TestUnknownKeysPolicies(t *testing.T) {
	type strictRec struct {
		ID int
	}

	in := map[string]any{"id": 1, "mystery": true}

	w, err := For[strictRec]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}
	if _, err := w.FromTree(context.Background(), in); err != nil {
		t.Errorf("ignore policy should drop unknown keys silently: %v", err)
	}

	w, err = For[strictRec](WithUnknownKeys(UnknownKeyWarn))
	if err != nil {
		t.Fatalf("For error: %v", err)
	}
	if _, err := w.FromTree(context.Background(), in); err != nil {
		t.Errorf("warn policy should not fail: %v", err)
	}

	w, err = For[strictRec](WithUnknownKeys(UnknownKeyRaise))
	if err != nil {
		t.Fatalf("For error: %v", err)
	}
	_, err = w.FromTree(context.Background(), in)
	if err == nil {
		t.Fatal("raise policy should fail")
	}
	if !errors.Is(err, ErrParse) {
		t.Errorf("error = %v, want ErrParse", err)
	}
	if !strings.Contains(err.Error(), "mystery") {
		t.Errorf("message %q should name the unknown key", err)
	}
}

func TestCatchAll(t *testing.T) {
	type openRec struct {
		ID    int
		Extra map[string]any `wiz:",catchall"`
	}

	w, err := For[openRec]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	got, err := w.FromTree(context.Background(), map[string]any{
		"id": 1, "color": "red", "size": int64(9),
	})
	if err != nil {
		t.Fatalf("FromTree error: %v", err)
	}
	if len(got.Extra) != 2 || got.Extra["color"] != "red" {
		t.Errorf("Extra = %v, want the two unclaimed keys", got.Extra)
	}

	tree, err := w.ToTree(context.Background(), *got)
	if err != nil {
		t.Fatalf("ToTree error: %v", err)
	}
	m := tree.(map[string]any)
	if m["color"] != "red" || m["size"] != int64(9) {
		t.Errorf("merged tree = %v", m)
	}
}

func TestCatchAllNeverShadowsDeclared(t *testing.T) {
	type openRec2 struct {
		ID    int
		Extra map[string]any `wiz:",catchall"`
	}

	w, err := For[openRec2]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	// A stashed key colliding with a declared one must not clobber it.
	tree, err := w.ToTree(context.Background(), openRec2{
		ID:    1,
		Extra: map[string]any{"id": 99},
	})
	if err != nil {
		t.Fatalf("ToTree error: %v", err)
	}
	if tree.(map[string]any)["id"] != int64(1) {
		t.Errorf("id = %v, declared field must win", tree.(map[string]any)["id"])
	}
}

func TestPathFields(t *testing.T) {
	type flat struct {
		Owner string `wiz:",path=meta.owners.0"`
		City  string `wiz:",path=address.city"`
	}

	w, err := For[flat]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	got, err := w.FromTree(context.Background(), map[string]any{
		"meta":    map[string]any{"owners": []any{"alice", "bob"}},
		"address": map[string]any{"city": "Berlin"},
	})
	if err != nil {
		t.Fatalf("FromTree error: %v", err)
	}
	if got.Owner != "alice" || got.City != "Berlin" {
		t.Errorf("decoded = %+v", got)
	}

	tree, err := w.ToTree(context.Background(), *got)
	if err != nil {
		t.Fatalf("ToTree error: %v", err)
	}
	meta := tree.(map[string]any)["meta"].(map[string]any)
	owners := meta["owners"].([]any)
	if owners[0] != "alice" {
		t.Errorf("owners = %v", owners)
	}
	addr := tree.(map[string]any)["address"].(map[string]any)
	if addr["city"] != "Berlin" {
		t.Errorf("address = %v", addr)
	}
}

func TestTupleArity(t *testing.T) {
	type vec struct {
		XYZ [3]float64
	}

	w, err := For[vec]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	got, err := w.FromTree(context.Background(), map[string]any{"xyz": []any{1.0, 2.0, 3.0}})
	if err != nil {
		t.Fatalf("FromTree error: %v", err)
	}
	if got.XYZ != [3]float64{1, 2, 3} {
		t.Errorf("XYZ = %v", got.XYZ)
	}

	_, err = w.FromTree(context.Background(), map[string]any{"xyz": []any{1.0, 2.0}})
	if err == nil {
		t.Fatal("short tuple should fail")
	}

	var mf *MissingFieldsError
	if !errors.As(err, &mf) {
		t.Fatalf("error type = %T", err)
	}
	if mf.Index != 2 || mf.Expected != 3 || mf.Actual != 2 {
		t.Errorf("arity = %d/%d/%d, want 2/3/2", mf.Index, mf.Expected, mf.Actual)
	}
}

func TestBytesBase64(t *testing.T) {
	type blobRec struct {
		Data []byte
	}

	w, err := For[blobRec]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	tree, err := w.ToTree(context.Background(), blobRec{Data: []byte("hello")})
	if err != nil {
		t.Fatalf("ToTree error: %v", err)
	}
	if tree.(map[string]any)["data"] != "aGVsbG8=" {
		t.Errorf("data = %v, want base64 text", tree.(map[string]any)["data"])
	}

	got, err := w.FromTree(context.Background(), tree)
	if err != nil {
		t.Fatalf("FromTree error: %v", err)
	}
	if string(got.Data) != "hello" {
		t.Errorf("Data = %q", got.Data)
	}
}

type listNode struct {
	Value int
	Next  *listNode
}

func TestRecursiveType(t *testing.T) {
	w, err := For[listNode]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	original := listNode{Value: 1, Next: &listNode{Value: 2}}

	tree, err := w.ToTree(context.Background(), original)
	if err != nil {
		t.Fatalf("ToTree error: %v", err)
	}
	next := tree.(map[string]any)["next"].(map[string]any)
	if next["value"] != int64(2) || next["next"] != nil {
		t.Errorf("next = %v", next)
	}

	got, err := w.FromTree(context.Background(), tree)
	if err != nil {
		t.Fatalf("FromTree error: %v", err)
	}
	if got.Next == nil || got.Next.Value != 2 || got.Next.Next != nil {
		t.Errorf("round trip = %+v", got)
	}
}

func TestNonRecursiveConfig(t *testing.T) {
	type leaf struct {
		ItemName string
	}
	type holder struct {
		TheLeaf leaf
	}

	w, err := For[holder](WithKeyCase(KeyCasePascal), WithRecursive(false))
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	tree, err := w.ToTree(context.Background(), holder{TheLeaf: leaf{ItemName: "x"}})
	if err != nil {
		t.Fatalf("ToTree error: %v", err)
	}
	m := tree.(map[string]any)
	inner, ok := m["TheLeaf"].(map[string]any)
	if !ok {
		t.Fatalf("outer key casing not applied: %v", m)
	}
	if inner["item_name"] != "x" {
		t.Errorf("nested plan should use the default configuration: %v", inner)
	}
}

func TestMarshalWithoutCodec(t *testing.T) {
	w, err := For[person]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	if _, err := w.Marshal(context.Background(), person{ID: 1}); !errors.Is(err, ErrNoCodec) {
		t.Errorf("Marshal error = %v, want ErrNoCodec", err)
	}
	if _, err := w.Unmarshal(context.Background(), []byte("{}")); !errors.Is(err, ErrNoCodec) {
		t.Errorf("Unmarshal error = %v, want ErrNoCodec", err)
	}
}

func TestFromTreeSlice(t *testing.T) {
	w, err := For[person]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	got, err := w.FromTreeSlice(context.Background(), []any{
		map[string]any{"id": 1, "name": "a"},
		map[string]any{"id": 2, "name": "b"},
	})
	if err != nil {
		t.Fatalf("FromTreeSlice error: %v", err)
	}
	if len(got) != 2 || got[1].ID != 2 {
		t.Errorf("slice = %+v", got)
	}
}
