/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package serial

import "fmt"

// MalformedDocument is returned when an imported document fails the structural
// contract. The caller shows it as a blocking message; the store is untouched.
type MalformedDocument struct {
	Reason string
	Err    error
}

func (e *MalformedDocument) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed document: %s: %v", e.Reason, e.Err)
	}
	return "malformed document: " + e.Reason
}

func (e *MalformedDocument) Unwrap() error { return e.Err }

// GenerationFailure is returned when generated content cannot be used, either
// because the generator failed or because its payload has an unexpected shape.
type GenerationFailure struct {
	Reason string
	Err    error
}

func (e *GenerationFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation failed: %s: %v", e.Reason, e.Err)
	}
	return "generation failed: " + e.Reason
}

func (e *GenerationFailure) Unwrap() error { return e.Err }

func malformed(reason string, err error) error { return &MalformedDocument{Reason: reason, Err: err} }
