// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import "strings"

// repairJSON fixes two slips chat models make in otherwise valid JSON: a
// key missing its opening quote (`, index_2":1`) and a trailing comma
// before a closing brace or bracket. String contents are never touched.
func repairJSON(s string) string {
	in := []rune(s)
	var out strings.Builder
	out.Grow(len(s) + 8)

	inString, escaped := false, false
	for i := 0; i < len(in); i++ {
		ch := in[i]
		if inString {
			out.WriteRune(ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case ',':
			if j := skipSpace(in, i+1); j < len(in) && (in[j] == '}' || in[j] == ']') {
				continue
			}
		}
		out.WriteRune(ch)

		if ch == '{' || ch == ',' {
			if start, end, ok := bareKey(in, i+1); ok {
				out.WriteString(string(in[i+1 : start]))
				out.WriteByte('"')
				out.WriteString(string(in[start:end]))
				out.WriteByte('"')
				// in[end] is the closing quote just written.
				i = end
			}
		}
	}
	return out.String()
}

// bareKey reports an identifier starting after optional whitespace at
// from and ending in `":`. It returns the identifier bounds.
func bareKey(in []rune, from int) (start, end int, ok bool) {
	start = skipSpace(in, from)
	if start >= len(in) || !isLetter(in[start]) {
		return 0, 0, false
	}
	end = start
	for end < len(in) && (isLetter(in[end]) || isDigit(in[end]) || in[end] == '_') {
		end++
	}
	if end+1 < len(in) && in[end] == '"' && in[end+1] == ':' {
		return start, end, true
	}
	return 0, 0, false
}

func skipSpace(in []rune, i int) int {
	for i < len(in) && isSpace(in[i]) {
		i++
	}
	return i
}
