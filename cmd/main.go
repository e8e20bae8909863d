package main

import (
    "github.com/davidrecordon/dawnward-sub002/config"
    "github.com/davidrecordon/dawnward-sub002/routes"
)

func main() {
    config.InitDB()
    r := routes.SetupRouter()
    r.Run(":8080")
}
