/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

// Row is a single ingested or materialized record flowing through a view:
// an arbitrary field payload plus the two derived columns the window view
// engine attaches to every row (Timestamp for watermark tracking, WindowID
// once a row has been assigned to a window). Grounded on the teacher's Msg
// (a map-backed payload passed by value through the stream engine) and
// TimeSlot (above), generalized to carry the window view's own derived
// columns instead of a free-form metadata map.
type Row struct {
	Fields    map[string]any
	Timestamp uint32
	WindowID  uint32
}

// NewRow copies fields into a new Row's payload so callers may keep
// mutating their own map after the call.
func NewRow(fields map[string]any) Row {
	cp := make(map[string]any, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Row{Fields: cp}
}

// Get returns a field value and whether it was present.
func (r Row) Get(name string) (any, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// Set assigns a field value, allocating the payload map if necessary.
func (r *Row) Set(name string, value any) {
	if r.Fields == nil {
		r.Fields = make(map[string]any)
	}
	r.Fields[name] = value
}

// Clone returns a deep-enough copy of r: a fresh payload map with the same
// key/value pairs, safe to hand to a different goroutine.
func (r Row) Clone() Row {
	cp := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		cp[k] = v
	}
	return Row{Fields: cp, Timestamp: r.Timestamp, WindowID: r.WindowID}
}
