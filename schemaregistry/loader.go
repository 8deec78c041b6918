/**
 * Copyright 2024 Confluent Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package schemaregistry

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// schema files are named <Kind>.v<version>.avsc
var schemaFilePattern = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_]*)\.v([1-9][0-9]*)\.avsc$`)

// ParseFile reads and parses a single .avsc file
func ParseFile(path string) (*Schema, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(filepath.Base(path), doc)
}

type schemaFile struct {
	path    string
	kind    Kind
	version int
}

// LoadDir registers every <Kind>.v<N>.avsc file in dir with the client,
// lowest version first within each kind. Files that do not follow the
// naming pattern are ignored.
func LoadDir(c Client, dir string) ([]SchemaMetadata, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []schemaFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := schemaFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		kind, err := ParseKind(m[1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		version, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		files = append(files, schemaFile{
			path:    filepath.Join(dir, e.Name()),
			kind:    kind,
			version: version,
		})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].kind != files[j].kind {
			return files[i].kind < files[j].kind
		}
		return files[i].version < files[j].version
	})

	loaded := make([]SchemaMetadata, 0, len(files))
	for _, f := range files {
		s, err := ParseFile(f.path)
		if err != nil {
			return nil, err
		}
		if err = c.RegisterVersion(f.kind, f.version, s); err != nil {
			return nil, err
		}
		meta, err := c.Get(f.kind, f.version)
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, meta)
	}
	return loaded, nil
}
