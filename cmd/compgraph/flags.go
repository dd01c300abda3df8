package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/jward/compgraph"
)

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text", "yaml"}

// formatValue is the --format flag. Set rejects unknown formats so cobra
// reports them while parsing flags.
type formatValue string

var _ pflag.Value = (*formatValue)(nil)

func (f *formatValue) String() string { return string(*f) }

func (f *formatValue) Set(s string) error {
	s = strings.ToLower(strings.TrimSpace(s))
	if err := validateFormat(s); err != nil {
		return err
	}
	*f = formatValue(s)
	return nil
}

func (f *formatValue) Type() string { return "format" }

// validateFormat checks that a --format value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, ", "))
}

// kindsValue is a repeatable, comma-separated --kind flag.
type kindsValue struct {
	kinds []compgraph.Kind
}

var _ pflag.SliceValue = (*kindsValue)(nil)

func (k *kindsValue) String() string {
	parts := make([]string, len(k.kinds))
	for i, kind := range k.kinds {
		parts[i] = string(kind)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (k *kindsValue) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		kind, ok := compgraph.ParseKind(part)
		if !ok {
			return fmt.Errorf("invalid kind %q: must be component, hook or util", part)
		}
		k.kinds = append(k.kinds, kind)
	}
	return nil
}

func (k *kindsValue) Type() string { return "kinds" }

func (k *kindsValue) Append(s string) error { return k.Set(s) }

func (k *kindsValue) Replace(vals []string) error {
	k.kinds = nil
	for _, v := range vals {
		if err := k.Set(v); err != nil {
			return err
		}
	}
	return nil
}

func (k *kindsValue) GetSlice() []string {
	out := make([]string, len(k.kinds))
	for i, kind := range k.kinds {
		out[i] = string(kind)
	}
	return out
}

// triState is a boolean flag that distinguishes "unset" from false.
type triState struct {
	set   bool
	value bool
}

var _ pflag.Value = (*triState)(nil)

func (t *triState) String() string {
	if !t.set {
		return ""
	}
	return fmt.Sprint(t.value)
}

func (t *triState) Set(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1":
		t.value = true
	case "false", "no", "0":
		t.value = false
	default:
		return fmt.Errorf("invalid boolean %q", s)
	}
	t.set = true
	return nil
}

func (t *triState) Type() string { return "bool" }

// Ptr returns nil when the flag was not given.
func (t *triState) Ptr() *bool {
	if !t.set {
		return nil
	}
	v := t.value
	return &v
}
