// Copyright 2018 The Kura Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fuse

import "fmt"

// Debug is called to output debug messages, including reply channel
// violations. The default implementation does nothing. Messages implement
// fmt.Stringer.
var Debug func(msg interface{}) = nop

func nop(msg interface{}) {}

type bugDoubleReply struct {
	ID       RequestID
	Response Response
}

func (b bugDoubleReply) String() string {
	return fmt.Sprintf("reply written twice: id=%v dropped=%#v", b.ID, b.Response)
}
