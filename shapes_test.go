package wizard

import (
	"context"
	"fmt"
	"net/netip"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestUUIDField(t *testing.T) {
	type resource struct {
		ID uuid.UUID
	}

	w, err := For[resource]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	id := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	tree, err := w.ToTree(context.Background(), resource{ID: id})
	if err != nil {
		t.Fatalf("ToTree error: %v", err)
	}
	if tree.(map[string]any)["id"] != id.String() {
		t.Errorf("id = %v, want canonical text", tree.(map[string]any)["id"])
	}

	got, err := w.FromTree(context.Background(), tree)
	if err != nil {
		t.Fatalf("FromTree error: %v", err)
	}
	if got.ID != id {
		t.Errorf("round trip = %v", got.ID)
	}

	if _, err := w.FromTree(context.Background(), map[string]any{"id": "not-a-uuid"}); err == nil {
		t.Error("invalid uuid text should fail")
	}
}

func TestDecimalField(t *testing.T) {
	type invoice struct {
		Total decimal.Decimal
	}

	w, err := For[invoice]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	total := decimal.RequireFromString("19.99")
	tree, err := w.ToTree(context.Background(), invoice{Total: total})
	if err != nil {
		t.Fatalf("ToTree error: %v", err)
	}
	if tree.(map[string]any)["total"] != "19.99" {
		t.Errorf("total = %v, want exact text", tree.(map[string]any)["total"])
	}

	got, err := w.FromTree(context.Background(), tree)
	if err != nil {
		t.Fatalf("FromTree error: %v", err)
	}
	if !got.Total.Equal(total) {
		t.Errorf("round trip = %v", got.Total)
	}
}

func TestTemporalFieldModes(t *testing.T) {
	type stamp struct {
		At   time.Time
		Born time.Time `wiz:",unix"`
	}

	w, err := For[stamp]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tree, err := w.ToTree(context.Background(), stamp{At: at, Born: at})
	if err != nil {
		t.Fatalf("ToTree error: %v", err)
	}
	m := tree.(map[string]any)
	if m["at"] != "2024-06-01T12:00:00Z" {
		t.Errorf("at = %v, want RFC 3339 text", m["at"])
	}
	if m["born"] != at.Unix() {
		t.Errorf("born = %v, want epoch %d", m["born"], at.Unix())
	}

	got, err := w.FromTree(context.Background(), tree)
	if err != nil {
		t.Fatalf("FromTree error: %v", err)
	}
	if !got.At.Equal(at) || !got.Born.Equal(at) {
		t.Errorf("round trip = %+v", got)
	}
}

func TestDurationField(t *testing.T) {
	type timing struct {
		Timeout time.Duration
	}

	w, err := For[timing]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	tree, err := w.ToTree(context.Background(), timing{Timeout: 90 * time.Second})
	if err != nil {
		t.Fatalf("ToTree error: %v", err)
	}
	if tree.(map[string]any)["timeout"] != "1m30s" {
		t.Errorf("timeout = %v, want text form", tree.(map[string]any)["timeout"])
	}

	for _, in := range []any{"1m30s", 90, "90"} {
		got, err := w.FromTree(context.Background(), map[string]any{"timeout": in})
		if err != nil {
			t.Fatalf("FromTree(%v) error: %v", in, err)
		}
		if got.Timeout != 90*time.Second {
			t.Errorf("FromTree(%v) = %v, want 1m30s", in, got.Timeout)
		}
	}
}

func TestComplexField(t *testing.T) {
	type signal struct {
		Z complex128
	}

	w, err := For[signal]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	tree, err := w.ToTree(context.Background(), signal{Z: complex(1, -2)})
	if err != nil {
		t.Fatalf("ToTree error: %v", err)
	}
	zs, ok := tree.(map[string]any)["z"].(string)
	if !ok {
		t.Fatalf("z = %T, complex values travel as text", tree.(map[string]any)["z"])
	}

	got, err := w.FromTree(context.Background(), map[string]any{"z": zs})
	if err != nil {
		t.Fatalf("FromTree error: %v", err)
	}
	if got.Z != complex(1, -2) {
		t.Errorf("round trip = %v", got.Z)
	}
}

func TestIntKeyedMap(t *testing.T) {
	type histogram struct {
		Counts map[int]int
	}

	w, err := For[histogram]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	tree, err := w.ToTree(context.Background(), histogram{Counts: map[int]int{3: 7}})
	if err != nil {
		t.Fatalf("ToTree error: %v", err)
	}
	counts := tree.(map[string]any)["counts"].(map[string]any)
	if counts["3"] != int64(7) {
		t.Errorf("counts = %v, keys render as text", counts)
	}

	got, err := w.FromTree(context.Background(), tree)
	if err != nil {
		t.Fatalf("FromTree error: %v", err)
	}
	if got.Counts[3] != 7 {
		t.Errorf("round trip = %v", got.Counts)
	}
}

func TestAnyField(t *testing.T) {
	type envelope struct {
		Payload any
	}

	w, err := For[envelope]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	for _, payload := range []any{nil, "text", int64(5), []any{1.0}} {
		tree, err := w.ToTree(context.Background(), envelope{Payload: payload})
		if err != nil {
			t.Fatalf("ToTree(%v) error: %v", payload, err)
		}
		got, err := w.FromTree(context.Background(), tree)
		if err != nil {
			t.Fatalf("FromTree(%v) error: %v", payload, err)
		}
		if !reflect.DeepEqual(got.Payload, payload) {
			t.Errorf("round trip = %v, want %v", got.Payload, payload)
		}
	}
}

func TestTextMarshalerField(t *testing.T) {
	type host struct {
		Addr netip.Addr
	}

	w, err := For[host]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	addr := netip.MustParseAddr("192.168.1.10")
	tree, err := w.ToTree(context.Background(), host{Addr: addr})
	if err != nil {
		t.Fatalf("ToTree error: %v", err)
	}
	if tree.(map[string]any)["addr"] != "192.168.1.10" {
		t.Errorf("addr = %v, want text form", tree.(map[string]any)["addr"])
	}

	got, err := w.FromTree(context.Background(), tree)
	if err != nil {
		t.Fatalf("FromTree error: %v", err)
	}
	if got.Addr != addr {
		t.Errorf("round trip = %v", got.Addr)
	}
}

// rgb exercises the tree override interfaces.
type rgb struct {
	R, G, B uint8
}

func (c rgb) MarshalTree() (any, error) {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B), nil
}

func (c *rgb) UnmarshalTree(tree any) error {
	s, err := asString(tree)
	if err != nil {
		return err
	}
	_, err = fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B)
	return err
}

func TestTreeOverride(t *testing.T) {
	type theme struct {
		Accent rgb
	}

	w, err := For[theme]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	tree, err := w.ToTree(context.Background(), theme{Accent: rgb{R: 255, G: 128, B: 0}})
	if err != nil {
		t.Fatalf("ToTree error: %v", err)
	}
	if tree.(map[string]any)["accent"] != "#ff8000" {
		t.Errorf("accent = %v, want hex text", tree.(map[string]any)["accent"])
	}

	got, err := w.FromTree(context.Background(), tree)
	if err != nil {
		t.Fatalf("FromTree error: %v", err)
	}
	if got.Accent != (rgb{R: 255, G: 128, B: 0}) {
		t.Errorf("round trip = %+v", got.Accent)
	}
}

// fahrenheit is stored as celsius in trees through a registered codec.
type fahrenheit float64

func TestRegisteredCodecEndToEnd(t *testing.T) {
	RegisterCodec[fahrenheit](
		func(f fahrenheit) (any, error) {
			return (float64(f) - 32) * 5 / 9, nil
		},
		func(in any) (fahrenheit, error) {
			c, err := asFloat64(in)
			if err != nil {
				return 0, err
			}
			return fahrenheit(c*9/5 + 32), nil
		},
	)

	type weather struct {
		Temp fahrenheit
	}

	w, err := For[weather]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	tree, err := w.ToTree(context.Background(), weather{Temp: 212})
	if err != nil {
		t.Fatalf("ToTree error: %v", err)
	}
	if tree.(map[string]any)["temp"] != 100.0 {
		t.Errorf("temp = %v, want 100 (codec output)", tree.(map[string]any)["temp"])
	}

	got, err := w.FromTree(context.Background(), tree)
	if err != nil {
		t.Fatalf("FromTree error: %v", err)
	}
	if got.Temp != 212 {
		t.Errorf("round trip = %v", got.Temp)
	}
}

func TestOptionalRecord(t *testing.T) {
	type inner struct {
		N int
	}
	type outer struct {
		In *inner
	}

	w, err := For[outer]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	tree, err := w.ToTree(context.Background(), outer{})
	if err != nil {
		t.Fatalf("ToTree error: %v", err)
	}
	if tree.(map[string]any)["in"] != nil {
		t.Errorf("in = %v, want null", tree.(map[string]any)["in"])
	}

	got, err := w.FromTree(context.Background(), map[string]any{
		"in": map[string]any{"n": 5},
	})
	if err != nil {
		t.Fatalf("FromTree error: %v", err)
	}
	if got.In == nil || got.In.N != 5 {
		t.Errorf("round trip = %+v", got.In)
	}
}

// pressure carries its unit; a codec registered on the pointer type owns
// the whole conversion, nil included.
type pressure struct {
	kpa float64
}

func TestPointerRegisteredCodec(t *testing.T) {
	RegisterCodec[*pressure](
		func(p *pressure) (any, error) {
			if p == nil {
				return nil, nil
			}
			return p.kpa, nil
		},
		func(in any) (*pressure, error) {
			if in == nil {
				return nil, nil
			}
			k, err := asFloat64(in)
			if err != nil {
				return nil, err
			}
			return &pressure{kpa: k}, nil
		},
	)

	sh, err := classify(reflect.TypeFor[*pressure](), annotations{})
	if err != nil {
		t.Fatalf("classify(*pressure) error: %v", err)
	}
	if sh.Kind != shapeCustom {
		t.Fatalf("classify(*pressure) = %s, want custom (codec beats the pointer unwrap)", sh.Kind)
	}

	type gauge struct {
		Reading *pressure
	}

	w, err := For[gauge]()
	if err != nil {
		t.Fatalf("For error: %v", err)
	}

	tree, err := w.ToTree(context.Background(), gauge{Reading: &pressure{kpa: 101.3}})
	if err != nil {
		t.Fatalf("ToTree error: %v", err)
	}
	if tree.(map[string]any)["reading"] != 101.3 {
		t.Errorf("reading = %v, want 101.3", tree.(map[string]any)["reading"])
	}

	got, err := w.FromTree(context.Background(), tree)
	if err != nil {
		t.Fatalf("FromTree error: %v", err)
	}
	if got.Reading == nil || got.Reading.kpa != 101.3 {
		t.Errorf("round trip = %+v", got.Reading)
	}

	got, err = w.FromTree(context.Background(), map[string]any{"reading": nil})
	if err != nil {
		t.Fatalf("FromTree(nil reading) error: %v", err)
	}
	if got.Reading != nil {
		t.Errorf("nil reading = %+v, want nil", got.Reading)
	}
}
