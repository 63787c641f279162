package resilience

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/catalog"
	catalogmock "github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/catalog/mock"
)

func TestCatalogFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		primary       *catalogmock.Catalog
		wantPrice     float64
		wantErr       error
		wantSecondary int
	}{
		{
			name:          "primary answers",
			primary:       &catalogmock.Catalog{Items: map[string]catalog.Item{"latte": {Name: "latte", Price: 4.5}}},
			wantPrice:     4.5,
			wantSecondary: 0,
		},
		{
			name:          "primary fails over",
			primary:       &catalogmock.Catalog{Errs: map[string]error{"latte": errors.New("connection refused")}},
			wantPrice:     9,
			wantSecondary: 1,
		},
		{
			name:          "not found is final",
			primary:       &catalogmock.Catalog{},
			wantErr:       catalog.ErrNotFound,
			wantSecondary: 0,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			secondary := &catalogmock.Catalog{Items: map[string]catalog.Item{"latte": {Name: "latte", Price: 9}}}
			fb := NewCatalogFallback(tc.primary, "postgres", BreakerConfig{MaxFailures: 3})
			fb.AddFallback("memory", secondary)

			item, err := fb.Lookup(context.Background(), "latte")
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
			} else if err != nil {
				t.Fatalf("Lookup: %v", err)
			} else if item.Price != tc.wantPrice {
				t.Errorf("price = %v, want %v", item.Price, tc.wantPrice)
			}
			if got := secondary.CallCount(); got != tc.wantSecondary {
				t.Errorf("secondary calls = %d, want %d", got, tc.wantSecondary)
			}
		})
	}
}

func TestCatalogFallback_AllFailKeepsCauses(t *testing.T) {
	t.Parallel()
	errPG := errors.New("pg down")
	errMem := errors.New("menu unloaded")
	fb := NewCatalogFallback(&catalogmock.Catalog{Errs: map[string]error{"latte": errPG}}, "postgres", BreakerConfig{})
	fb.AddFallback("memory", &catalogmock.Catalog{Errs: map[string]error{"latte": errMem}})

	_, err := fb.Lookup(context.Background(), "latte")
	for _, want := range []error{ErrAllFailed, errPG, errMem} {
		if !errors.Is(err, want) {
			t.Errorf("err = %v, does not match %v", err, want)
		}
	}
	if !slices.Equal(fb.Names(), []string{"postgres", "memory"}) {
		t.Errorf("Names = %q", fb.Names())
	}
}

func TestCatalogFallback_OpenPrimaryIsSkipped(t *testing.T) {
	t.Parallel()
	primary := &catalogmock.Catalog{Errs: map[string]error{"latte": errors.New("timeout")}}
	secondary := &catalogmock.Catalog{Items: map[string]catalog.Item{"latte": {Name: "latte"}}}
	fb := NewCatalogFallback(primary, "postgres", BreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour})
	fb.AddFallback("memory", secondary)

	for range 5 {
		if _, err := fb.Lookup(context.Background(), "latte"); err != nil {
			t.Fatalf("Lookup: %v", err)
		}
	}
	if got := primary.CallCount(); got != 2 {
		t.Errorf("primary calls = %d, want 2 before the breaker opened", got)
	}
	if got := fb.States()["postgres"]; got != StateOpen {
		t.Errorf("postgres breaker = %s, want open", got)
	}
	if got := fb.States()["memory"]; got != StateClosed {
		t.Errorf("memory breaker = %s, want closed", got)
	}
}

func TestCatalogFallback_CancelledLookupStops(t *testing.T) {
	t.Parallel()
	primary := &catalogmock.Catalog{
		Items:  map[string]catalog.Item{"latte": {Name: "latte"}},
		Delays: map[string]time.Duration{"latte": time.Second},
	}
	secondary := &catalogmock.Catalog{Items: map[string]catalog.Item{"latte": {Name: "latte"}}}
	fb := NewCatalogFallback(primary, "postgres", BreakerConfig{MaxFailures: 1})
	fb.AddFallback("memory", secondary)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := fb.Lookup(ctx, "latte"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}
	if secondary.CallCount() != 0 {
		t.Error("secondary asked after the caller gave up")
	}
	if got := fb.States()["postgres"]; got != StateClosed {
		t.Errorf("postgres breaker = %s, want closed", got)
	}
}
