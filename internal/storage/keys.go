/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import "strings"

// Storage keys. Board media and layout keys are scoped per user; auth keys are global.
const (
	KeyLayout      = "MENU_LAYOUT"
	KeyBackground  = "MENU_BG"
	KeyIntroVideo  = "INTRO_VIDEO"
	KeyAutosave    = "MENU_LAYOUT_AUTOSAVE"
	KeyUsers       = "AUTH_USERS_V1"
	KeyCurrentUser = "AUTH_CURRENT_USER_V1"
)

// UserScopedKey namespaces key for user. An empty user leaves the key unscoped.
func UserScopedKey(user, key string) string {
	user = strings.TrimSpace(user)
	if user == "" {
		return key
	}
	return key + ":" + user
}
