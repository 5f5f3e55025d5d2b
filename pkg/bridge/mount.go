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
	"github.com/cockroachdb/errors"

	"github.com/kurafs/tracefs/pkg/fuse"
)

// MountConfig holds the options a file system is mounted with.
type MountConfig struct {
	ReadOnly bool   `koanf:"readonly"`
	FSName   string `koanf:"fsname"`
	Subtype  string `koanf:"subtype"`

	// VolumeName is the name shown by Finder; other hosts ignore it.
	VolumeName string `koanf:"volumename"`

	// AllowOther lets users other than the mounting one access the mount.
	// It requires user_allow_other in /etc/fuse.conf.
	AllowOther bool `koanf:"allowother"`

	// AutoUnmount unmounts when serving stops, however it stops.
	AutoUnmount bool `koanf:"autounmount"`
}

// The kernel protocol version bazil speaks, offered to FileSystem.Init.
const (
	protoMajor = 7
	protoMinor = 12
)

// capable are the init flags bazil lets a file system ask for at mount time.
const capable = fuse.InitAsyncRead | fuse.InitWritebackCache

// mountOptions translates cfg and the file system's init choices into bazil
// mount options.
func mountOptions(cfg MountConfig, kcfg *fuse.KernelConfig) []bazilfuse.MountOption {
	var opts []bazilfuse.MountOption
	if cfg.FSName != "" {
		opts = append(opts, bazilfuse.FSName(cfg.FSName))
	}
	if cfg.Subtype != "" {
		opts = append(opts, bazilfuse.Subtype(cfg.Subtype))
	}
	if cfg.VolumeName != "" {
		opts = append(opts, bazilfuse.VolumeName(cfg.VolumeName))
	}
	if cfg.ReadOnly {
		opts = append(opts, bazilfuse.ReadOnly())
	}
	if cfg.AllowOther {
		opts = append(opts, bazilfuse.AllowOther())
	}
	if kcfg != nil {
		opts = append(opts, bazilfuse.MaxReadahead(kcfg.MaxReadahead))
		if kcfg.Requested()&fuse.InitAsyncRead != 0 {
			opts = append(opts, bazilfuse.AsyncRead())
		}
		if kcfg.Requested()&fuse.InitWritebackCache != 0 {
			opts = append(opts, bazilfuse.WritebackCache())
		}
	}
	return opts
}

// Mount mounts at mountpoint and waits for the kernel to accept the mount.
func Mount(mountpoint string, cfg MountConfig, kcfg *fuse.KernelConfig) (*bazilfuse.Conn, error) {
	conn, err := bazilfuse.Mount(mountpoint, mountOptions(cfg, kcfg)...)
	if err != nil {
		return nil, errors.Wrapf(err, "mounting %s", mountpoint)
	}
	<-conn.Ready
	if err := conn.MountError; err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "mounting %s", mountpoint)
	}
	return conn, nil
}

// Unmount unmounts the file system mounted at mountpoint.
func Unmount(mountpoint string) error {
	if err := bazilfuse.Unmount(mountpoint); err != nil {
		return errors.Wrapf(err, "unmounting %s", mountpoint)
	}
	return nil
}
