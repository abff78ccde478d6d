// Package config implements spec.md §6's configuration surface: a YAML
// subset ("server:" mapping with listen/root_dir/locale/tls), a legacy
// key=value format, and "${VAR}" environment expansion for either.
//
// Grounded on original_source/selenia_core/src/config.rs: the naive
// indent-tracking YAML scanner (no real YAML library — the original hand-
// rolls it, and spec.md calls it a "YAML subset" rather than full YAML, so
// this stays in that spirit) translated line-for-line into Go, plus the
// same key=value fallback format.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// TLS holds the optional certificate/key file paths from the "tls:"
// sub-mapping.
type TLS struct {
	Cert string
	Key  string
}

// Config is the parsed server configuration.
type Config struct {
	Listen  []string
	RootDir string
	Locale  string
	TLS     *TLS
}

// Validate checks the fields spec.md's §7 "master-process config
// validation errors exit with code 1 before any listener binds" step
// requires to be present.
func (c *Config) Validate() error {
	if len(c.Listen) == 0 {
		return fmt.Errorf("config: at least one listen address is required")
	}
	if c.RootDir == "" {
		return fmt.Errorf("config: root_dir is required")
	}
	return nil
}

// expandEnv replaces "${VAR}" occurrences with the named environment
// variable's value; unknown variables are left intact, per spec.md §6.
func expandEnv(s string) string {
	var out strings.Builder
	for i := 0; i < len(s); {
		if s[i] == '$' && i+1 < len(s) && s[i+1] == '{' {
			end := strings.IndexByte(s[i+2:], '}')
			if end >= 0 {
				name := s[i+2 : i+2+end]
				if v, ok := os.LookupEnv(name); ok {
					out.WriteString(v)
					i += 2 + end + 1
					continue
				}
				// Unknown variable: leave the "${VAR}" text intact.
				out.WriteString(s[i : i+2+end+1])
				i += 2 + end + 1
				continue
			}
		}
		out.WriteByte(s[i])
		i++
	}
	return out.String()
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func indentOf(line string) int {
	n := 0
	for n < len(line) && (line[n] == ' ' || line[n] == '\t') {
		n++
	}
	return n
}

// LoadYAML parses the limited YAML subset:
//
//	server:
//	  listen:
//	    - "0.0.0.0:8080"
//	  root_dir: "./www"
//	  locale: "en"
//	  tls:
//	    cert: "./cert.pem"
//	    key: "./key.pem"
func LoadYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseYAML(string(data))
}

// ParseYAML parses YAML-subset text directly (exposed for tests and for
// config-reload paths that already have file contents in memory).
func ParseYAML(content string) (*Config, error) {
	cfg := &Config{}
	lines := strings.Split(content, "\n")

	inServer := false
	serverIndent := -1

	for i := 0; i < len(lines); i++ {
		raw := lines[i]
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		indent := indentOf(raw)

		if !inServer {
			if trimmed == "server:" {
				inServer = true
				serverIndent = indent
			}
			continue
		}
		if indent <= serverIndent {
			inServer = false
			i--
			continue
		}

		switch {
		case trimmed == "listen:":
			listenIndent := indent
			for i+1 < len(lines) {
				peek := lines[i+1]
				peekTrim := strings.TrimSpace(peek)
				peekIndent := indentOf(peek)
				if peekIndent <= listenIndent || peekTrim == "" {
					break
				}
				if strings.HasPrefix(peekTrim, "-") {
					addr := unquote(strings.TrimSpace(strings.TrimPrefix(peekTrim, "-")))
					cfg.Listen = append(cfg.Listen, expandEnv(addr))
				}
				i++
			}
		case strings.HasPrefix(trimmed, "root_dir:") || strings.HasPrefix(trimmed, "root:"):
			cfg.RootDir = expandEnv(unquote(valueAfterColon(trimmed)))
		case strings.HasPrefix(trimmed, "locale:"):
			cfg.Locale = expandEnv(unquote(valueAfterColon(trimmed)))
		case trimmed == "tls:":
			tlsIndent := indent
			tls := &TLS{}
			for i+1 < len(lines) {
				peek := lines[i+1]
				peekTrim := strings.TrimSpace(peek)
				peekIndent := indentOf(peek)
				if peekIndent <= tlsIndent || peekTrim == "" {
					break
				}
				if strings.HasPrefix(peekTrim, "cert:") {
					tls.Cert = expandEnv(unquote(valueAfterColon(peekTrim)))
				} else if strings.HasPrefix(peekTrim, "key:") {
					tls.Key = expandEnv(unquote(valueAfterColon(peekTrim)))
				}
				i++
			}
			cfg.TLS = tls
		}
	}
	return cfg, nil
}

func valueAfterColon(line string) string {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(line[idx+1:])
}

// LoadLegacy parses the legacy key=value format: host, port, root_dir,
// locale.
func LoadLegacy(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseLegacy(string(data))
}

// ParseLegacy parses legacy key=value text directly.
func ParseLegacy(content string) (*Config, error) {
	var host, port, rootDir, locale string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			return nil, fmt.Errorf("config: invalid line %q", line)
		}
		key := strings.TrimSpace(line[:idx])
		val := expandEnv(strings.TrimSpace(line[idx+1:]))
		switch key {
		case "host":
			host = val
		case "port":
			if _, err := strconv.ParseUint(val, 10, 16); err != nil {
				return nil, fmt.Errorf("config: invalid port %q", val)
			}
			port = val
		case "root_dir":
			rootDir = val
		case "locale":
			locale = val
		default:
			return nil, fmt.Errorf("config: unknown key %q", key)
		}
	}
	cfg := &Config{RootDir: rootDir, Locale: locale}
	if host != "" && port != "" {
		cfg.Listen = []string{host + ":" + port}
	}
	return cfg, nil
}

// Load tries path as YAML first, falling back to the legacy key=value
// format on parse/shape failure, mirroring
// original_source/selenia_server/src/main.rs's
// "load_from_yaml().or_else(load_from_file)" chain.
func Load(path string) (*Config, error) {
	cfg, err := LoadYAML(path)
	if err == nil && len(cfg.Listen) > 0 && cfg.RootDir != "" {
		return cfg, nil
	}
	return LoadLegacy(path)
}
