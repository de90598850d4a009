/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage implements the frame sidecar persistence.
// Every image has at most one sidecar next to it (photo.jpg -> photo.pck) holding a
// gzip-compressed XML document with the image's pick frames. Writes are transactional
// (temp file plus rename) and documents without frames are never written: saving one
// removes the sidecar instead.
package storage
