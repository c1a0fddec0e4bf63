package i18n

import (
	"embed"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Catalog maps locale -> namespace -> key -> message.
type Catalog struct {
	messages map[string]map[string]map[string]string
}

// LoadCatalog reads the embedded catalog of every supported locale.
func LoadCatalog() (*Catalog, error) {
	c := &Catalog{messages: make(map[string]map[string]map[string]string, len(Locales))}
	for _, locale := range Locales {
		raw, err := localeFS.ReadFile(path.Join("locales", locale+".yaml"))
		if err != nil {
			return nil, fmt.Errorf("read %s catalog: %w", locale, err)
		}
		var m map[string]map[string]string
		if err := yaml.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("parse %s catalog: %w", locale, err)
		}
		c.messages[locale] = m
	}
	return c, nil
}

// MustLoadCatalog is LoadCatalog for package initialization.
func MustLoadCatalog() *Catalog {
	c, err := LoadCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

// T looks up namespace.key for locale, falling back to the default locale
// and then to the key path itself. args fill {placeholder}s.
func (c *Catalog) T(locale, namespace, key string, args map[string]string) string {
	msg, ok := c.lookup(locale, namespace, key)
	if !ok {
		msg, ok = c.lookup(DefaultLocale, namespace, key)
	}
	if !ok {
		return namespace + "." + key
	}
	for name, value := range args {
		msg = strings.ReplaceAll(msg, "{"+name+"}", value)
	}
	return msg
}

func (c *Catalog) lookup(locale, namespace, key string) (string, bool) {
	msg, ok := c.messages[locale][namespace][key]
	return msg, ok
}

// Namespace binds a locale and namespace for templates.
func (c *Catalog) Namespace(locale, namespace string) func(key string, args ...string) string {
	return func(key string, args ...string) string {
		var m map[string]string
		if len(args) > 0 {
			m = make(map[string]string, len(args)/2)
			for i := 0; i+1 < len(args); i += 2 {
				m[args[i]] = args[i+1]
			}
		}
		return c.T(locale, namespace, key, m)
	}
}

// Keys lists namespace.key pairs of a locale.
func (c *Catalog) Keys(locale string) []string {
	var keys []string
	for ns, msgs := range c.messages[locale] {
		for k := range msgs {
			keys = append(keys, ns+"."+k)
		}
	}
	return keys
}
