package blob

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store persists uploaded files and hands back the public path recorded on
// the owning row. Saves happen outside database transactions, so a failed
// commit can leave an orphaned object behind.
type Store interface {
	Save(ctx context.Context, folder, originalName string, r io.Reader) (string, error)
	Delete(ctx context.Context, publicPath string) error
}

const PublicPrefix = "/uploads/"

// ObjectName builds {folder}/{timestamp}_{uuid8}_{name} from an uploaded
// filename, dropping any directory parts the client sent.
func ObjectName(folder, originalName string, now time.Time) string {
	name := sanitizeName(originalName)
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return path.Join(strings.Trim(folder, "/"), fmt.Sprintf("%s_%s_%s", now.Format("20060102150405"), id, name))
}

func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r < 0x20, r == '/', r == ':', r == '*', r == '?', r == '"', r == '<', r == '>', r == '|':
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return name
}

func objectFromPublicPath(publicPath string) (string, error) {
	object, ok := strings.CutPrefix(publicPath, PublicPrefix)
	if !ok || object == "" {
		return "", fmt.Errorf("path %q is not under %s", publicPath, PublicPrefix)
	}
	cleaned := path.Clean("/" + object)[1:]
	if cleaned == "" || cleaned != object {
		return "", fmt.Errorf("path %q is not a clean upload path", publicPath)
	}
	return cleaned, nil
}
