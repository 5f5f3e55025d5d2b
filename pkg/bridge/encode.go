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

package bridge

import (
	bazilfuse "bazil.org/fuse"

	"github.com/kurafs/tracefs/pkg/fuse"
)

// respond encodes resp as the answer to r and writes it to the kernel.
func respond(r bazilfuse.Request, resp fuse.Response) {
	if errno, ok := resp.(fuse.Errno); ok {
		if r, ok := r.(*bazilfuse.ForgetRequest); ok {
			// Forget has no reply to carry an error.
			r.Respond()
			return
		}
		r.RespondError(bazilfuse.Errno(errno))
		return
	}

	switch r := r.(type) {
	case *bazilfuse.LookupRequest:
		r.Respond(lookupResponse(resp.(fuse.Entry)))
	case *bazilfuse.GetattrRequest:
		r.Respond(&bazilfuse.GetattrResponse{Attr: attr(resp.(fuse.AttrOut).Attr)})
	case *bazilfuse.SetattrRequest:
		r.Respond(&bazilfuse.SetattrResponse{Attr: attr(resp.(fuse.AttrOut).Attr)})
	case *bazilfuse.ReadlinkRequest:
		r.Respond(string(resp.(fuse.Data)))
	case *bazilfuse.MknodRequest:
		r.Respond(lookupResponse(resp.(fuse.Entry)))
	case *bazilfuse.MkdirRequest:
		r.Respond(&bazilfuse.MkdirResponse{LookupResponse: *lookupResponse(resp.(fuse.Entry))})
	case *bazilfuse.SymlinkRequest:
		r.Respond(&bazilfuse.SymlinkResponse{LookupResponse: *lookupResponse(resp.(fuse.Entry))})
	case *bazilfuse.LinkRequest:
		r.Respond(lookupResponse(resp.(fuse.Entry)))
	case *bazilfuse.OpenRequest:
		r.Respond(openResponse(resp.(fuse.Opened)))
	case *bazilfuse.ReadRequest:
		var data []byte
		switch resp := resp.(type) {
		case fuse.Directory:
			data = encodeDirectory(resp, r.Size)
		case fuse.Data:
			data = truncate(resp, r.Size)
		}
		r.Respond(&bazilfuse.ReadResponse{Data: data})
	case *bazilfuse.WriteRequest:
		r.Respond(&bazilfuse.WriteResponse{Size: int(resp.(fuse.Written).Size)})
	case *bazilfuse.StatfsRequest:
		r.Respond(statfsResponse(resp.(fuse.Statfs)))
	case *bazilfuse.GetxattrRequest:
		r.Respond(&bazilfuse.GetxattrResponse{Xattr: xattrData(resp.(fuse.Xattr))})
	case *bazilfuse.ListxattrRequest:
		r.Respond(&bazilfuse.ListxattrResponse{Xattr: xattrData(resp.(fuse.Xattr))})
	case *bazilfuse.CreateRequest:
		created := resp.(fuse.Created)
		r.Respond(&bazilfuse.CreateResponse{
			LookupResponse: *lookupResponse(created.Entry),
			OpenResponse:   *openResponse(created.Opened),
		})
	case interface{ Respond() }:
		r.Respond()
	default:
		r.RespondError(bazilfuse.Errno(fuse.EIO))
	}
}

func attr(a fuse.Attr) bazilfuse.Attr {
	return bazilfuse.Attr{
		Valid:     a.Valid,
		Inode:     a.Inode,
		Size:      a.Size,
		Blocks:    a.Blocks,
		Atime:     a.Atime,
		Mtime:     a.Mtime,
		Ctime:     a.Ctime,
		Crtime:    a.Crtime,
		Mode:      a.Mode,
		Nlink:     a.Nlink,
		Uid:       a.Uid,
		Gid:       a.Gid,
		Rdev:      a.Rdev,
		Flags:     a.Flags,
		BlockSize: a.BlockSize,
	}
}

func lookupResponse(e fuse.Entry) *bazilfuse.LookupResponse {
	return &bazilfuse.LookupResponse{
		Node:       bazilfuse.NodeID(e.Node),
		Generation: e.Generation,
		EntryValid: e.EntryValid,
		Attr:       attr(e.Attr),
	}
}

func openResponse(o fuse.Opened) *bazilfuse.OpenResponse {
	return &bazilfuse.OpenResponse{
		Handle: bazilfuse.HandleID(o.Handle),
		Flags:  bazilfuse.OpenResponseFlags(o.Flags),
	}
}

func statfsResponse(s fuse.Statfs) *bazilfuse.StatfsResponse {
	return &bazilfuse.StatfsResponse{
		Blocks:  s.Blocks,
		Bfree:   s.Bfree,
		Bavail:  s.Bavail,
		Files:   s.Files,
		Ffree:   s.Ffree,
		Bsize:   s.Bsize,
		Namelen: s.Namelen,
		Frsize:  s.Frsize,
	}
}

// encodeDirectory packs as many entries of d as fit in size bytes. The
// kernel asks again from the offset of the last entry it got.
func encodeDirectory(d fuse.Directory, size int) []byte {
	var data []byte
	for _, e := range d.Entries {
		if len(data)+fuse.DirentSize(e.Name) > size {
			break
		}
		data = fuse.AppendDirent(data, e)
	}
	return data
}

func truncate(data []byte, size int) []byte {
	if len(data) > size {
		return data[:size]
	}
	return data
}

// xattrData returns the bytes bazil answers with. A size probe carries no
// data, and bazil reports the length of what it is given.
func xattrData(x fuse.Xattr) []byte {
	if x.Data == nil && x.Size > 0 {
		return make([]byte, x.Size)
	}
	return x.Data
}
