package steampipe

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/samber/lo"
	"github.com/zclconf/go-cty/cty"
)

// Connection is one `connection "<name>" { plugin = ... }` block of a .spc file.
type Connection struct {
	Name   string
	Plugin string
	// Attrs are plugin specific settings such as subscription_id or project.
	Attrs map[string]string
}

// ConnectionConfig is the content of one generated .spc file: a connection per account
// plus an aggregator connection spanning all of them.
type ConnectionConfig struct {
	Plugin      string
	Connections []Connection
	// Aggregator is the name of the aggregator connection, e.g. "azure_all".
	Aggregator  string
	GeneratedAt time.Time
}

// Render produces the HCL text of the config.
func (c ConnectionConfig) Render() []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	body.AppendUnstructuredTokens(comment(fmt.Sprintf("Auto-generated %s configuration", c.Plugin)))
	body.AppendUnstructuredTokens(comment("Generated on: " + c.GeneratedAt.UTC().Format(time.RFC3339)))
	body.AppendNewline()

	for _, conn := range c.Connections {
		block := body.AppendNewBlock("connection", []string{conn.Name})
		b := block.Body()
		b.SetAttributeValue("plugin", cty.StringVal(conn.Plugin))
		keys := lo.Keys(conn.Attrs)
		sort.Strings(keys)
		for _, k := range keys {
			b.SetAttributeValue(k, cty.StringVal(conn.Attrs[k]))
		}
		body.AppendNewline()
	}

	if c.Aggregator != "" {
		block := body.AppendNewBlock("connection", []string{c.Aggregator})
		b := block.Body()
		b.SetAttributeValue("plugin", cty.StringVal(c.Plugin))
		b.SetAttributeValue("type", cty.StringVal("aggregator"))
		members := lo.Map(c.Connections, func(conn Connection, _ int) cty.Value { return cty.StringVal(conn.Name) })
		if len(members) == 0 {
			b.SetAttributeValue("connections", cty.ListValEmpty(cty.String))
		} else {
			b.SetAttributeValue("connections", cty.ListVal(members))
		}
	}

	return hclwrite.Format(f.Bytes())
}

// Write renders the config into dir/<plugin>.spc and returns the file path.
func (c ConnectionConfig) Write(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	path := filepath.Join(dir, c.Plugin+".spc")
	if err := os.WriteFile(path, c.Render(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// SanitizeName turns a display name into a connection-safe identifier: spaces and dashes
// become underscores, anything else that is not alphanumeric is dropped, and the result
// is lower-cased.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('_')
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func comment(text string) hclwrite.Tokens {
	return hclwrite.Tokens{{Type: hclsyntax.TokenComment, Bytes: []byte("# " + text + "\n")}}
}
