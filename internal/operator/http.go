package operator

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/arp"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/netaddr"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/router"
	"github.com/lirlia/100day_challenge_backend/day72_pwospf_router/internal/rtable"
)

// arpRow, intfRow, routeRow, and tunnelRow are the JSON shapes served by the
// read-only HTTP views, mirroring the teacher's web/handler.go API
// responses (plain structs marshaled straight by echo.Context.JSON) rather
// than the text protocol's fixed-column rows.
type arpRow struct {
	IP   string `json:"ip"`
	MAC  string `json:"mac"`
	Kind string `json:"kind"`
}

type intfRow struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	IP      string `json:"ip"`
	Mask    string `json:"mask"`
	MAC     string `json:"mac"`
	Enabled bool   `json:"enabled"`
}

type routeRow struct {
	Subnet    string `json:"subnet"`
	Mask      string `json:"mask"`
	Gateway   string `json:"gateway"`
	Interface string `json:"interface"`
	Kind      string `json:"kind"`
}

type tunnelRow struct {
	Name           string `json:"name"`
	LocalInterface string `json:"local_interface"`
	RemoteIP       string `json:"remote_ip"`
}

type lsdbRow struct {
	RouterID string `json:"router_id"`
	Neighbor string `json:"neighbor"`
	Subnet   string `json:"subnet"`
	Mask     string `json:"mask"`
}

// HTTPHandlers registers the read-only JSON status views against e, grounded
// in the teacher's web/handler.go + main.go echo wiring (main.go already
// imports echo; this package is what actually uses it).
func HTTPHandlers(core *router.Router) func(*echo.Echo) {
	return func(e *echo.Echo) {
		e.GET("/api/arp", func(c echo.Context) error {
			entries := core.ARPCache.All()
			rows := make([]arpRow, 0, len(entries))
			for _, ent := range entries {
				kind := "dynamic"
				if ent.Kind == arp.Static {
					kind = "static"
				}
				rows = append(rows, arpRow{IP: ent.IP.String(), MAC: ent.MAC.String(), Kind: kind})
			}
			return c.JSON(http.StatusOK, rows)
		})

		e.GET("/api/interfaces", func(c echo.Context) error {
			ifaces := core.Ifaces.All()
			rows := make([]intfRow, 0, len(ifaces))
			for _, in := range ifaces {
				rows = append(rows, intfRow{
					Name: in.Name(), Type: in.Type().String(), IP: in.IP().String(),
					Mask: in.Mask().String(), MAC: in.MAC().String(), Enabled: in.Enabled(),
				})
			}
			return c.JSON(http.StatusOK, rows)
		})

		e.GET("/api/routes", func(c echo.Context) error {
			entries := core.Routes.All()
			rows := make([]routeRow, 0, len(entries))
			for _, ent := range entries {
				kind := "static"
				if ent.Kind == rtable.Dynamic {
					kind = "dynamic"
				}
				gw := ""
				if !ent.Gateway.IsZero() {
					gw = ent.Gateway.String()
				}
				rows = append(rows, routeRow{
					Subnet: ent.Subnet.String(), Mask: ent.Mask.String(), Gateway: gw,
					Interface: ent.Interface.Name(), Kind: kind,
				})
			}
			return c.JSON(http.StatusOK, rows)
		})

		e.GET("/api/tunnels", func(c echo.Context) error {
			tuns := core.Tunnels.All()
			rows := make([]tunnelRow, 0, len(tuns))
			for _, t := range tuns {
				rows = append(rows, tunnelRow{Name: t.Name, LocalInterface: t.LocalInterface, RemoteIP: t.RemoteIP.String()})
			}
			return c.JSON(http.StatusOK, rows)
		})

		e.GET("/api/ospf/lsdb", func(c echo.Context) error {
			raw := lsdbRows(core)
			rows := make([]lsdbRow, 0, len(raw))
			for _, r := range raw {
				rows = append(rows, lsdbRow{RouterID: r[0], Neighbor: r[1], Subnet: r[2], Mask: r[3]})
			}
			return c.JSON(http.StatusOK, rows)
		})

		e.GET("/api/status", func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]interface{}{
				"router_id": netaddr.IPv4(core.ID).String(),
				"area_id":   core.OSPF.AreaID,
				"running":   core.IsRunning(),
			})
		})
	}
}
