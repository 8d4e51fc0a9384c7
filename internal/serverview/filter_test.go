package serverview

import (
	"testing"

	"github.com/vstojkovic/bugle/internal/model"
)

func TestFilterHidesAnyInvalidityWhenIncludeInvalidFalse(t *testing.T) {
	cases := []struct {
		name     string
		validity model.Validity
	}{
		{"build", model.InvalidBuild},
		{"addr", model.InvalidAddr},
		{"port", model.InvalidPort},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := &model.Server{Name: "Alpha", Validity: c.validity}
			f := Filter{IncludePassword: true}
			if f.Match(s) {
				t.Errorf("expected server with %s invalidity to be hidden when IncludeInvalid is false", c.name)
			}
		})
	}
}

func TestFilterShowsInvalidWhenIncludeInvalidTrue(t *testing.T) {
	s := &model.Server{Name: "Alpha", Validity: model.InvalidAddr}
	f := Filter{IncludeInvalid: true, IncludePassword: true}
	if !f.Match(s) {
		t.Error("expected invalid server to be shown when IncludeInvalid is true")
	}
}
