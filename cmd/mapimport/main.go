// mapimport validates a map-definition JSON file against the embedded
// schema and drives the world server's admin endpoints to create, fill,
// and finalize the map.
//
// Usage:
//
//	mapimport -file genesis.json -server http://localhost:8420 -token <admin token>
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/orvandal/gridworld/internal/model"
)

// mapDefinition is the on-disk map format. Tiles are listed in row-major
// order, row z then column x, and must cover the whole map.
type mapDefinition struct {
	Name  string     `json:"name"`
	SizeX uint16     `json:"size_x"`
	SizeZ uint16     `json:"size_z"`
	Tiles []tileSpec `json:"tiles"`
}

type tileSpec struct {
	Landmass   uint8  `json:"landmass,omitempty"`
	Biome      uint8  `json:"biome,omitempty"`
	Terrain    uint8  `json:"terrain,omitempty"`
	Elevation  uint8  `json:"elevation"`
	WaterLevel uint8  `json:"water_level,omitempty"`
	Vegetation uint8  `json:"vegetation,omitempty"`
	Rock       uint8  `json:"rock,omitempty"`
	Wildlife   uint8  `json:"wildlife,omitempty"`
	RiverEdges uint8  `json:"river_edges,omitempty"`
	HasRoad    bool   `json:"has_road,omitempty"`
	HasLake    bool   `json:"has_lake,omitempty"`
	Safety     uint8  `json:"safety,omitempty"`
	Resources  []struct {
		Kind   uint8  `json:"kind"`
		Amount uint32 `json:"amount"`
	} `json:"resources,omitempty"`
}

const mapSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name", "size_x", "size_z", "tiles"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "size_x": {"type": "integer", "minimum": 1, "maximum": 4096},
    "size_z": {"type": "integer", "minimum": 1, "maximum": 4096},
    "tiles": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["elevation"],
        "properties": {
          "landmass": {"type": "integer", "minimum": 0, "maximum": 255},
          "biome": {"type": "integer", "minimum": 0, "maximum": 9},
          "terrain": {"type": "integer", "minimum": 0, "maximum": 6},
          "elevation": {"type": "integer", "minimum": 0, "maximum": 255},
          "water_level": {"type": "integer", "minimum": 0, "maximum": 255},
          "vegetation": {"type": "integer", "minimum": 0, "maximum": 255},
          "rock": {"type": "integer", "minimum": 0, "maximum": 255},
          "wildlife": {"type": "integer", "minimum": 0, "maximum": 255},
          "river_edges": {"type": "integer", "minimum": 0, "maximum": 63},
          "has_road": {"type": "boolean"},
          "has_lake": {"type": "boolean"},
          "safety": {"type": "integer", "minimum": 0, "maximum": 100},
          "resources": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["kind", "amount"],
              "properties": {
                "kind": {"type": "integer", "minimum": 1, "maximum": 6},
                "amount": {"type": "integer", "minimum": 0}
              }
            }
          }
        }
      }
    }
  }
}`

// batchSize keeps admin requests comfortably under typical body limits.
const batchSize = 256

func main() {
	file := flag.String("file", "", "map definition JSON file")
	serverURL := flag.String("server", "http://localhost:8420", "world server base URL")
	token := flag.String("token", "", "admin bearer token")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: mapimport -file <map.json> [-server URL] [-token TOKEN]")
		os.Exit(2)
	}

	if err := run(*file, *serverURL, *token); err != nil {
		slog.Error("import failed", "err", err)
		os.Exit(1)
	}
}

func run(file, serverURL, token string) error {
	raw, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", file, err)
	}

	def, err := validate(raw)
	if err != nil {
		return err
	}
	if uint32(len(def.Tiles)) != uint32(def.SizeX)*uint32(def.SizeZ) {
		return fmt.Errorf("map %q: %d tiles for a %dx%d grid", def.Name, len(def.Tiles), def.SizeX, def.SizeZ)
	}

	c := &client{base: strings.TrimRight(serverURL, "/"), token: token, http: &http.Client{Timeout: 30 * time.Second}}

	if err := c.post("/v1/admin/maps", map[string]any{
		"name": def.Name, "size_x": def.SizeX, "size_z": def.SizeZ,
	}); err != nil {
		return fmt.Errorf("creating map: %w", err)
	}

	start, err := c.tileStart(def.Name)
	if err != nil {
		return err
	}

	for lo := 0; lo < len(def.Tiles); lo += batchSize {
		hi := min(lo+batchSize, len(def.Tiles))
		batch := make([]map[string]any, 0, hi-lo)
		for i := lo; i < hi; i++ {
			batch = append(batch, map[string]any{
				"index": start + uint16(i),
				"data":  toStatic(def.Tiles[i]),
			})
		}
		if err := c.post("/v1/admin/tiles", map[string]any{"tiles": batch}); err != nil {
			return fmt.Errorf("setting tiles %d..%d: %w", lo, hi, err)
		}
	}

	if err := c.post("/v1/admin/finalize", map[string]any{}); err != nil {
		return fmt.Errorf("finalizing map: %w", err)
	}

	slog.Info("map imported", "name", def.Name, "tiles", len(def.Tiles))
	return nil
}

func validate(raw []byte) (*mapDefinition, error) {
	schema, err := jsonschema.CompileString("mapdefinition.json", mapSchema)
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing map definition: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("map definition invalid: %w", err)
	}
	var def mapDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("decoding map definition: %w", err)
	}
	return &def, nil
}

func toStatic(t tileSpec) model.TileStatic {
	s := model.TileStatic{
		Landmass:   t.Landmass,
		Biome:      model.Biome(t.Biome),
		Terrain:    model.Terrain(t.Terrain),
		Elevation:  t.Elevation,
		WaterLevel: t.WaterLevel,
		Vegetation: t.Vegetation,
		Rock:       t.Rock,
		Wildlife:   t.Wildlife,
		RiverEdges: t.RiverEdges,
		HasRoad:    t.HasRoad,
		HasLake:    t.HasLake,
		Safety:     t.Safety,
	}
	for _, r := range t.Resources {
		s.Resources = append(s.Resources, model.Resource{Kind: model.ResourceKind(r.Kind), Amount: r.Amount})
	}
	return s
}

type client struct {
	base  string
	token string
	http  *http.Client
}

func (c *client) post(path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s: %s: %s", path, resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}

// tileStart fetches the created map's starting tile index.
func (c *client) tileStart(name string) (uint16, error) {
	resp, err := c.http.Get(c.base + "/v1/maps")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	var maps []struct {
		Name      string `json:"Name"`
		TileStart uint16 `json:"TileStart"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&maps); err != nil {
		return 0, fmt.Errorf("decoding maps: %w", err)
	}
	for _, m := range maps {
		if m.Name == name {
			return m.TileStart, nil
		}
	}
	return 0, fmt.Errorf("map %q not found on server", name)
}
