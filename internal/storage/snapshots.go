/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// AutosaveCrashSnapshot writes the in-memory project as a timestamped blob,
// bypassing the normal save path. It is called from the panic handler, so it
// must not assume a healthy manifest on disk. A nil store falls back to a
// file store over the project's backups folder.
func AutosaveCrashSnapshot(ph *ProjectHandle, bs BlobStore) (string, error) {
	if ph == nil {
		return "", errors.New("nil ProjectHandle")
	}
	if ph.Root == "" {
		return "", errors.New("invalid ProjectHandle: missing root")
	}
	data, err := json.MarshalIndent(ph.Project, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal autosave: %w", err)
	}
	data = append(data, '\n')

	stamp := time.Now().Format("20060102-150405")
	key := fmt.Sprintf("crash-autosave-%s.json", stamp)

	if bs == nil {
		fs, ferr := NewFileStore(filepath.Join(ph.Root, BackupsDirName))
		if ferr != nil {
			return "", fmt.Errorf("open autosave store: %w", ferr)
		}
		if err := fs.Put(key, data); err != nil {
			return "", fmt.Errorf("write autosave: %w", err)
		}
		return filepath.Join(ph.Root, BackupsDirName, key), nil
	}
	if err := bs.Put(key, data); err != nil {
		return "", fmt.Errorf("write autosave: %w", err)
	}
	return key, nil
}
