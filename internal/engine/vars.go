package engine

import (
	"fmt"
	"path"

	"github.com/atframework/genconf/internal/config"
	"github.com/atframework/genconf/internal/ident"
	"github.com/atframework/genconf/internal/instance"
	"github.com/atframework/genconf/internal/render"
)

const (
	defaultSHMKeyBase = 0x10000000
	defaultRunDir     = "../tmp"
	defaultHost       = "127.0.0.1"
)

// instanceVars returns the template variables describing inst.
func (e *Engine) instanceVars(inst instance.Instance, installPrefix, section string) render.Vars {
	return render.Vars{
		"server_name":      inst.Service,
		"server_index":     inst.Index,
		"server_full_name": inst.FullName(),
		"server_id":        inst.ProcID,
		"server_bus_id":    ident.FormatProcID(inst.ProcID),
		"server_type_id":   inst.TypeID,
		"server":           e.store.Items(section),
		"install_prefix":   installPrefix,
		"atbus_listen":     e.listenAddresses(inst, section),
	}
}

// listenAddresses returns the bus listen addresses of inst: shared memory, unix socket
// and TCP, each subject to its switch or configuration.
func (e *Engine) listenAddresses(inst instance.Instance, section string) []string {
	var out []string
	if !e.opts.DisableSHM {
		base := e.store.IntOption(config.SystemSection, "shm_key_base", defaultSHMKeyBase)
		key := base + int64(inst.TypeID)*256 + int64(inst.Index)
		out = append(out, fmt.Sprintf("shm://0x%x", key))
	}
	if !e.opts.DisableUnixSock {
		runDir := e.store.Option(config.SystemSection, "run_dir", defaultRunDir)
		out = append(out, "unix://"+path.Join(runDir, inst.FullName()+".sock"))
	}
	if e.store.Has(section, "port") {
		host := e.store.Option(config.SystemSection, "host", defaultHost)
		port := e.store.IntOption(section, "port", 0) + int64(inst.Index-e.opts.IDOffset)
		out = append(out, fmt.Sprintf("ipv4://%s:%d", host, port))
	}
	return out
}
