package main

import (
	"context"
	"log"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/logrusorgru/aurora"

	"hooktrap/internal/transport/cli"
)

const (
	banner = `
.__                   __     __
|  |__   ____   ____ |  | __/  |_____________  ______
|  |  \ /  _ \ /  _ \|  |/ /\   __\_  __ \__  \\____ \
|   Y  (  <_> |  <_> )    <  |  |  |  | \// __ \  |_> >
|___|  /\____/ \____/|__|_ \ |__|  |__|  (____  /   __/
     \/                   \/                  \/|__|`
)

func main() {
	log.Println("\n", aurora.Cyan(banner))
	root := cli.NewRoot()
	if err := fang.Execute(context.Background(), root); err != nil {
		os.Exit(1)
	}
}
