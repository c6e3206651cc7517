// Package all links every sourcestore backend into the binary. Blank-import
// it from a command's main package to make -store=sqlite|postgres|mssql work.
package all

import (
	_ "bookrules/internal/sourcestore/mssql"
	_ "bookrules/internal/sourcestore/postgres"
	_ "bookrules/internal/sourcestore/sqlite"
)
