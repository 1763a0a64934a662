// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"path/filepath"
	"strings"

	"github.com/pdiddy/pandoc-runner/pkg/types"
)

// OutputPath returns where a single-file conversion of input writes. An
// output without an extension names a directory; the file inside it is
// the input's stem with the format's extension.
func OutputPath(input, output string, format types.OutputFormat) string {
	if filepath.Ext(output) != "" {
		return output
	}
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(output, stem+format.Extension())
}
