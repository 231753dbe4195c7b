package config

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
)

// OptionType is the value type of an option.
type OptionType string

const (
	TypeString   OptionType = "string"
	TypeBool     OptionType = "bool"
	TypeInt      OptionType = "int"
	TypeFloat    OptionType = "float"
	TypeDuration OptionType = "duration"
)

// check reports whether value parses as t.
func (t OptionType) check(value string) error {
	var err error
	switch t {
	case TypeString, "":
		return nil
	case TypeBool:
		_, err = parseBool(value)
	case TypeInt:
		_, err = strconv.Atoi(value)
	case TypeFloat:
		_, err = strconv.ParseFloat(value, 64)
	case TypeDuration:
		_, err = time.ParseDuration(value)
	default:
		return fmt.Errorf("unknown option type %q", t)
	}
	if err != nil {
		return fmt.Errorf("expected %s, got %q", t, value)
	}
	return nil
}

// ConfigOption describes one option.
type ConfigOption struct {
	Key         string
	Type        OptionType
	Default     string
	Description string
	// Section is empty for global options.
	Section string
	// EnvVar, if set, overrides any configured value.
	EnvVar string
}

type optionKey struct{ section, key string }

// ConfigSchema is the set of known options. It drives validation, typed
// resolution and the help text.
type ConfigSchema struct {
	order   []optionKey
	options map[optionKey]ConfigOption
}

// NewSchema returns an empty schema.
func NewSchema() *ConfigSchema {
	return &ConfigSchema{options: make(map[optionKey]ConfigOption)}
}

// Register adds opts. A later registration of the same section and key
// replaces the earlier one in place.
func (s *ConfigSchema) Register(opts ...ConfigOption) {
	for _, opt := range opts {
		k := optionKey{opt.Section, opt.Key}
		if _, ok := s.options[k]; !ok {
			s.order = append(s.order, k)
		}
		s.options[k] = opt
	}
}

// Lookup returns the option registered for section ("" for global) and key.
func (s *ConfigSchema) Lookup(section, key string) *ConfigOption {
	if opt, ok := s.options[optionKey{section, key}]; ok {
		return &opt
	}
	return nil
}

// effective returns the option governing key within section: the section's
// own option, else the global one.
func (s *ConfigSchema) effective(section, key string) *ConfigOption {
	if opt := s.Lookup(section, key); opt != nil || section == "" {
		return opt
	}
	return s.Lookup("", key)
}

// IsKnown reports whether key may appear in section. Global keys may
// appear in any section.
func (s *ConfigSchema) IsKnown(section, key string) bool {
	return s.effective(section, key) != nil
}

// GlobalOptions returns the global options in registration order.
func (s *ConfigSchema) GlobalOptions() []ConfigOption {
	return s.SectionOptions("")
}

// SectionOptions returns the options of section in registration order.
func (s *ConfigSchema) SectionOptions(section string) []ConfigOption {
	var out []ConfigOption
	for _, k := range s.order {
		if k.section == section {
			out = append(out, s.options[k])
		}
	}
	return out
}

// Sections returns the sorted names of every section with options.
func (s *ConfigSchema) Sections() []string {
	var out []string
	for _, k := range s.order {
		if k.section != "" && !slices.Contains(out, k.section) {
			out = append(out, k.section)
		}
	}
	sort.Strings(out)
	return out
}

// Resolve returns the effective value of a global key.
func (s *ConfigSchema) Resolve(c *Config, key string) string {
	return s.ResolveSection(c, "", key)
}

// ResolveSection returns the effective value of key in section, taken from
// the first of: the option's environment variable, the section value, the
// global value, the default. c may be nil.
func (s *ConfigSchema) ResolveSection(c *Config, section, key string) string {
	opt := s.effective(section, key)
	if opt != nil && opt.EnvVar != "" {
		if v, ok := os.LookupEnv(opt.EnvVar); ok {
			return v
		}
	}
	if c != nil {
		get := c.GetGlobalOption
		if section != "" {
			get = func(name string) (string, bool) { return c.GetSectionOption(section, name) }
		}
		if v, ok := get(key); ok {
			return v
		}
	}
	if opt != nil {
		return opt.Default
	}
	return ""
}

func resolveAs[T any](s *ConfigSchema, c *Config, section, key string, typ OptionType, parse func(string) (T, error)) (T, error) {
	v := s.ResolveSection(c, section, key)
	out, err := parse(v)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("option %s: expected %s, got %q", qualify(section, key), typ, v)
	}
	return out, nil
}

// ResolveInt resolves key as an int.
func (s *ConfigSchema) ResolveInt(c *Config, section, key string) (int, error) {
	return resolveAs(s, c, section, key, TypeInt, strconv.Atoi)
}

// ResolveBool resolves key as a bool.
func (s *ConfigSchema) ResolveBool(c *Config, section, key string) (bool, error) {
	return resolveAs(s, c, section, key, TypeBool, parseBool)
}

// ResolveFloat resolves key as a float64.
func (s *ConfigSchema) ResolveFloat(c *Config, section, key string) (float64, error) {
	return resolveAs(s, c, section, key, TypeFloat, func(v string) (float64, error) {
		return strconv.ParseFloat(v, 64)
	})
}

// ResolveDuration resolves key as a time.Duration.
func (s *ConfigSchema) ResolveDuration(c *Config, section, key string) (time.Duration, error) {
	return resolveAs(s, c, section, key, TypeDuration, time.ParseDuration)
}

func qualify(section, key string) string {
	if section == "" {
		return key
	}
	return "[" + section + "] " + key
}

// ValidateConfig returns a sorted list of problems with c: unknown keys and
// values that do not parse as their option's type.
func ValidateConfig(c *Config, s *ConfigSchema) []string {
	var issues []string
	for key, value := range c.Global {
		opt := s.Lookup("", key)
		if opt == nil {
			issues = append(issues, fmt.Sprintf("unknown global option: %q (value: %q)", key, value))
		} else if err := opt.Type.check(value); err != nil {
			issues = append(issues, fmt.Sprintf("global option %q: %v", key, err))
		}
	}
	for section, opts := range c.Sections {
		for key, value := range opts {
			opt := s.effective(section, key)
			if opt == nil {
				issues = append(issues, fmt.Sprintf("unknown option in [%s]: %q (value: %q)", section, key, value))
			} else if err := opt.Type.check(value); err != nil {
				issues = append(issues, fmt.Sprintf("option %q in [%s]: %v", key, section, err))
			}
		}
	}
	sort.Strings(issues)
	return issues
}

func getGlobal[T any](c *Config, key string, parse func(string) (T, error)) T {
	var zero T
	v, ok := c.GetGlobalOption(key)
	if !ok {
		return zero
	}
	out, err := parse(v)
	if err != nil {
		return zero
	}
	return out
}

// GetString returns the raw global value of key.
func (c *Config) GetString(key string) string {
	v, _ := c.GetGlobalOption(key)
	return v
}

// GetBool returns the global value of key as a bool, false if unset or
// malformed.
func (c *Config) GetBool(key string) bool { return getGlobal(c, key, parseBool) }

// GetInt returns the global value of key as an int, 0 if unset or
// malformed.
func (c *Config) GetInt(key string) int { return getGlobal(c, key, strconv.Atoi) }

// GetDuration returns the global value of key as a duration, 0 if unset or
// malformed.
func (c *Config) GetDuration(key string) time.Duration {
	return getGlobal(c, key, time.ParseDuration)
}

// FormatHelp renders every option, globals first, then each section.
func (s *ConfigSchema) FormatHelp() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 8, 2, ' ', 0)
	write := func(title string, opts []ConfigOption) {
		if len(opts) == 0 {
			return
		}
		_, _ = fmt.Fprintf(w, "%s\n", title)
		for _, o := range opts {
			var notes []string
			if o.Type != "" && o.Type != TypeString {
				notes = append(notes, "type: "+string(o.Type))
			}
			if o.Default != "" {
				notes = append(notes, "default: "+o.Default)
			}
			if o.EnvVar != "" {
				notes = append(notes, "env: "+o.EnvVar)
			}
			line := "  " + o.Key + "\t" + o.Description
			if len(notes) > 0 {
				line += " (" + strings.Join(notes, ", ") + ")"
			}
			_, _ = fmt.Fprintln(w, line)
		}
	}
	write("Global Options:", s.GlobalOptions())
	for _, sec := range s.Sections() {
		_, _ = fmt.Fprintln(w)
		write("["+sec+"] Options:", s.SectionOptions(sec))
	}
	_ = w.Flush()
	return b.String()
}
