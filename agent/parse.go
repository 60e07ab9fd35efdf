package agent

import (
	"encoding/json"
	"path"
	"strings"

	"github.com/sochen-ai/sochen/core"
)

// extractCodeBlocks pulls fenced code blocks out of a completion. The fence
// info string may carry "language path", a bare path or a bare language;
// blocks without a usable path land on defaultPath.
func extractCodeBlocks(text, defaultPath string) []core.CodeFile {
	parts := strings.Split(text, "```")
	var files []core.CodeFile
	for i := 1; i < len(parts); i += 2 {
		block := parts[i]
		info, body, found := strings.Cut(block, "\n")
		if !found {
			continue
		}
		lang, filePath := parseFenceInfo(strings.TrimSpace(info))
		if filePath == "" {
			filePath = defaultPath
		}
		body = strings.TrimRight(body, "\n")
		if body == "" || filePath == "" {
			continue
		}
		files = append(files, core.CodeFile{Path: filePath, Content: body + "\n", Language: lang})
	}
	return files
}

func parseFenceInfo(info string) (lang, filePath string) {
	fields := strings.Fields(info)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		if looksLikePath(fields[0]) {
			return languageForPath(fields[0]), fields[0]
		}
		return fields[0], ""
	default:
		return fields[0], fields[1]
	}
}

func looksLikePath(s string) bool {
	return strings.ContainsAny(s, "./")
}

func languageForPath(p string) string {
	switch path.Ext(p) {
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".js":
		return "javascript"
	case ".ts":
		return "typescript"
	case ".md":
		return "markdown"
	default:
		return ""
	}
}

// decodeList finds the first JSON array in a completion and decodes it.
// Models often wrap the payload in prose or fences, so everything outside
// the outermost brackets is ignored.
func decodeList[T any](text string, out *[]T) bool {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return false
	}
	return json.Unmarshal([]byte(text[start:end+1]), out) == nil
}
