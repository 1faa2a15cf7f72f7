package catalog

import (
	"go.uber.org/fx"
)

// Module provides the sound catalog.
var Module = fx.Module("catalog",
	fx.Provide(NewDirCatalog),
)
