/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage implements local persistence for menu boards.
// Blob and JSON documents live in a data directory, one file per key, written transactionally with timestamped backups
// of the previous JSON document. Keys are plain strings; callers namespace them per user with UserScopedKey.
// Settings and layout revisions live in an embedded SQLite database at <data>/menuboard.sqlite.
// The database holds no authoritative board state and is rebuildable when it turns out to be corrupt.
package storage
