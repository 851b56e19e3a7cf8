/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage implements deck persistence and indexing.
// It handles create/open/save for deck files (*.deck.json) with transactional writes and timestamped backups
// under <dir>/.gsd/backups, plus crash autosaves under <dir>/.gsd/autosave.
// It also manages the per-directory embedded SQLite index at <dir>/.gsd/index.sqlite used for text search,
// the thumbnail cache and save history. The index is derived from the deck files and can be deleted at any time.
package storage
