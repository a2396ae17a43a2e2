package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var (
	port     int
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the JSON API server",
		Long: `Start the read-only HTTP API over the school database.

Endpoints:
  GET /api/schools?region=&level=
  GET /api/search?q=&region=&level=&limit=
  GET /api/schools/{id}
  GET /api/runs
  GET /api/runs/latest`,
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&port, "port", "p", 3000, "Port to run the server on")
}

func runServe() {
	db, cleanup := openDB()
	defer cleanup()

	fmt.Printf("Starting School Directory API server...\n")
	fmt.Printf("Data directory: %s\n", dataDir)
	fmt.Printf("Port: %d\n\n", port)

	if err := StartServer(db, port); err != nil {
		log.Fatalf("Server failed: %v\n", err)
	}
}
