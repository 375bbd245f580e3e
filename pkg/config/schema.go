// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import "github.com/invopop/jsonschema"

// SchemaID is the $id of the generated configuration schema.
const SchemaID = "https://github.com/dhruv465/Website-Builder-sub000/sitepipe.schema.json"

// JSONSchema describes the configuration file for editors and validators.
func JSONSchema(version string) *jsonschema.Schema {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		FieldNameTag:              "yaml",
	}
	schema := r.Reflect(&Config{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "sitepipe configuration"
	schema.Description = "Workflow engine, remote agents, state store and server settings"
	schema.Version = "http://json-schema.org/draft-07/schema#"
	if version != "" {
		schema.Description += " (" + version + ")"
	}
	return schema
}
