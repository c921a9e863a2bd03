package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "scan":
		err = cmdScan(os.Args[2:])
	case "objects":
		err = cmdObjects(os.Args[2:])
	case "dump":
		err = cmdDump(os.Args[2:])
	case "props":
		err = cmdProps(os.Args[2:])
	case "disasm":
		err = cmdDisasm(os.Args[2:])
	case "graph":
		err = cmdGraph(os.Args[2:])
	case "verify":
		err = cmdVerify(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `uepkg: Unreal Engine 2 package decoder

Usage:
  uepkg scan    <pkg>... [--json]                    Header and table summary
  uepkg objects <pkg> [--imports] [--class <c>]      List exports and imports
  uepkg dump    <pkg> --object <name> [--out <dir>]  Decode one object to JSON or CBOR
  uepkg props   <pkg> --class <name> [--diff]        Class default properties
  uepkg disasm  <pkg> (--function <f> | --class <c>) Decompiled statement listing
  uepkg graph   <pkg> (--hierarchy | --calls | --classes) [--out <file>]
  uepkg verify  <pkg> [--container]                  Re-encode every export and compare

<pkg> is a package file or a package name found through the search paths.

Flags:
  --config <file>       YAML configuration (default $UEPKG_CONFIG)
  --system <dir>        Game System directory
  --ini <file>          Game INI with [Core.System] Paths= entries
  --path <glob>         Extra search pattern, repeatable
  --charset <name>      Charset of package strings (default windows-1252)
  --strict              Unknown properties and residual bytes are errors
  --log-level <level>   debug, info, warn or error
`)
}
