// Copyright 2015 Google Inc. All rights reserved
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package forge

import "github.com/golang/glog"

// Diagnostic logging goes through glog, same as the teacher's worker
// code. Build-visible status lines (the ok/no lines of §6, produced by
// queue.go's resultLine) are a separate concern written directly to the
// Queue's configured writer, not through glog.

func logScheduler(format string, args ...interface{}) {
	glog.V(1).Infof(format, args...)
}

func logJob(format string, args ...interface{}) {
	glog.V(2).Infof(format, args...)
}

func warnf(format string, args ...interface{}) {
	glog.Warningf(format, args...)
}
