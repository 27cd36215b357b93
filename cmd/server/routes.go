package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	apphttp "api-boilerplate/internal/http"
	"api-boilerplate/internal/router"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List the routes every app module registers",
	RunE: func(cmd *cobra.Command, args []string) error {
		// nothing is served, so the auth guard only has to exist
		_, routes := apphttp.NewEngine(cfg, &router.Deps{
			Logger:      logger,
			RequireAuth: func(c *gin.Context) { c.Next() },
		})

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "METHOD\tPATH\tTAG\tAUTH\tSUMMARY")
		for _, r := range routes {
			auth := ""
			if r.Auth {
				auth = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Method, r.Path, r.Tag, auth, r.Summary)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(routesCmd)
}
