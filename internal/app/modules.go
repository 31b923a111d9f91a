package app

import (
	"github.com/vk/cigrid/internal/registry"
	"github.com/vk/cigrid/modules/checkout"
	"github.com/vk/cigrid/modules/env_info"
	"github.com/vk/cigrid/modules/run"
	"github.com/vk/cigrid/modules/sharded_run"
	"github.com/vk/cigrid/modules/write_file"
)

// coreModules is the definitive list of all step modules that are compiled
// into the cigrid binary.
var coreModules = []registry.Module{
	&run.Module{},
	&checkout.Module{},
	&write_file.Module{},
	&env_info.Module{},
	&sharded_run.Module{},
}
