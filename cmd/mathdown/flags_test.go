package main

import (
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	flag "github.com/spf13/pflag"
)

func TestParseFlags(t *testing.T) {
	t.Parallel()

	t.Run("short and long flags", func(t *testing.T) {
		t.Parallel()

		f, args, err := parseFlags([]string{
			"-f", "pdf", "-w", "2", "-t", "45s", "-s", "dark",
			"--no-typeset", "--no-canonicalize", "-p", "a4", "--orientation", "landscape", "--margin", "1",
			"answers/",
		}, io.Discard)
		if err != nil {
			t.Fatalf("parseFlags() error = %v", err)
		}
		if f.format != "pdf" || f.workers != 2 || f.timeout != "45s" || f.style != "dark" {
			t.Errorf("flags = %+v", f)
		}
		if !f.noTypeset || !f.noCanonicalize || f.noNormalize {
			t.Errorf("pipeline switches = %v %v %v", f.noTypeset, f.noCanonicalize, f.noNormalize)
		}
		want := pageFlags{size: "a4", orientation: "landscape", margin: 1}
		if f.page != want {
			t.Errorf("page = %+v, want %+v", f.page, want)
		}
		if diff := cmp.Diff([]string{"answers/"}, args); diff != "" {
			t.Errorf("args mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("quiet and verbose conflict", func(t *testing.T) {
		t.Parallel()

		_, _, err := parseFlags([]string{"-q", "-v"}, io.Discard)
		if !errors.Is(err, ErrUsage) {
			t.Errorf("parseFlags() error = %v, want ErrUsage", err)
		}
	})

	t.Run("help", func(t *testing.T) {
		t.Parallel()

		_, _, err := parseFlags([]string{"--help"}, io.Discard)
		if !errors.Is(err, flag.ErrHelp) {
			t.Errorf("parseFlags() error = %v, want flag.ErrHelp", err)
		}
	})

	t.Run("unknown flag", func(t *testing.T) {
		t.Parallel()

		if _, _, err := parseFlags([]string{"--colour"}, io.Discard); err == nil {
			t.Error("parseFlags() should reject unknown flags")
		}
	})
}
