package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func routes(drafts []Draft) []string {
	out := make([]string, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, d.Key())
	}
	return out
}

func TestScan_Express(t *testing.T) {
	t.Parallel()
	src := `const app = express();
app.get('/users', listUsers);
app.post("/users", createUser);
router.get(` + "`/users/:id`" + `, getUser);
// app.delete('/users/:id', removeUser);
/* app.put('/hidden', h);
   app.patch('/hidden', h); */
app.get('/users', again);
app.get(` + "`/users/${prefix}/x`" + `, dyn);
r.GET("/health", health)
router.route('/books/:bookId(\\d+)').get(show).put(update);
`
	drafts := Scan(src, Express)
	assert.Equal(t, []string{
		"GET /users",
		"POST /users",
		"GET /users/{id}",
		"GET /health",
		"GET /books/{bookId}",
		"PUT /books/{bookId}",
	}, routes(drafts))
	assert.Equal(t, 2, drafts[0].Line)
	assert.Equal(t, 4, drafts[2].Line)
}

func TestScan_FastAPI(t *testing.T) {
	t.Parallel()
	src := `app = FastAPI()

@app.get("/items")
def list_items(): ...

# @app.delete("/items/{item_id}")
@router.post(path="/items")
@app.api_route("/items/{item_id:int}", methods=["GET", "PATCH", "bogus"])
@app.api_route("/ping")
@app.get("/items")
`
	assert.Equal(t, []string{
		"GET /items",
		"POST /items",
		"GET /items/{item_id}",
		"PATCH /items/{item_id}",
		"GET /ping",
	}, routes(Scan(src, FastAPI)))
}

func TestScan_NothingRecognized(t *testing.T) {
	t.Parallel()
	drafts := Scan("console.log('hello')\n", Express)
	assert.NotNil(t, drafts)
	assert.Empty(t, drafts)
	assert.Empty(t, Scan("", FastAPI))
}

func TestParseAndDetectFramework(t *testing.T) {
	t.Parallel()
	fw, err := ParseFramework(" ExpressLike ")
	require.NoError(t, err)
	assert.Equal(t, Express, fw)
	fw, err = ParseFramework("fastapi")
	require.NoError(t, err)
	assert.Equal(t, FastAPI, fw)
	_, err = ParseFramework("rails")
	assert.Error(t, err)

	fw, ok := DetectFramework("api/server.TS")
	assert.True(t, ok)
	assert.Equal(t, Express, fw)
	fw, ok = DetectFramework("main.py")
	assert.True(t, ok)
	assert.Equal(t, FastAPI, fw)
	_, ok = DetectFramework("routes.rb")
	assert.False(t, ok)
}

func TestScanFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	py := filepath.Join(dir, "main.py")
	require.NoError(t, os.WriteFile(py, []byte("@app.put('/a/{b}')\n"), 0o600))

	drafts, err := ScanFile(py, "")
	require.NoError(t, err)
	assert.Equal(t, []Draft{{Method: "PUT", Path: "/a/{b}", Line: 1}}, drafts)

	_, err = ScanFile(filepath.Join(dir, "routes.rb"), "")
	assert.Error(t, err)
	_, err = ScanFile(filepath.Join(dir, "missing.js"), "")
	assert.Error(t, err)
}
