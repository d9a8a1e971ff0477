package spincube

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

type AssetId string

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}

type ColorSpace uint8

const (
	ColorSpaceLinear ColorSpace = iota
	ColorSpaceSRGB
)

type WrapMode uint8

const (
	WrapClampToEdge WrapMode = iota
	WrapRepeat
)

// TextureAsset starts as a 1x1 white placeholder and is replaced in place
// once its file has been decoded. Version increases on every replacement.
type TextureAsset struct {
	Path       string
	Image      *image.RGBA
	ColorSpace ColorSpace
	Wrap       WrapMode
	Repeat     [2]float32
	Version    uint
	Loaded     bool
	Err        error
}

type TextureOption func(*TextureAsset)

func WithColorSpace(cs ColorSpace) TextureOption {
	return func(t *TextureAsset) { t.ColorSpace = cs }
}

func WithWrap(w WrapMode) TextureOption {
	return func(t *TextureAsset) { t.Wrap = w }
}

func WithRepeat(u, v float32) TextureOption {
	return func(t *TextureAsset) { t.Repeat = [2]float32{u, v} }
}

type LoadEventKind uint8

const (
	LoadStart LoadEventKind = iota
	LoadProgress
	LoadComplete
	LoadError
)

func (k LoadEventKind) String() string {
	switch k {
	case LoadStart:
		return "start"
	case LoadProgress:
		return "progress"
	case LoadComplete:
		return "complete"
	case LoadError:
		return "error"
	}
	return fmt.Sprintf("LoadEventKind(%d)", uint8(k))
}

// LoadEvent reports loader progress. Loaded and Total count the files of the
// current batch; a batch ends with LoadComplete.
type LoadEvent struct {
	Kind   LoadEventKind
	Id     AssetId
	Path   string
	Loaded int
	Total  int
	Err    error
}

type loadJob struct {
	id   AssetId
	path string
}

type loadResult struct {
	job loadJob
	img *image.RGBA
	err error
}

// AssetServer loads textures on background workers. Results only become
// visible to the frame thread through Poll, so readers of TextureAsset never
// race with the workers.
type AssetServer struct {
	Sink func(LoadEvent)

	// MaxRetries bounds retries of transient read failures.
	MaxRetries uint64
	readFile   func(string) ([]byte, error)

	textures map[AssetId]*TextureAsset

	mu      sync.Mutex
	byPath  map[string]AssetId
	events  []LoadEvent
	queued  int
	done    int
	closed  bool
	jobs    chan loadJob
	results chan loadResult
	watcher *fsnotify.Watcher

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAssetServer starts the given number of decoding workers.
func NewAssetServer(workers int) *AssetServer {
	if workers <= 0 {
		workers = 2
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &AssetServer{
		MaxRetries: 3,
		readFile:   os.ReadFile,
		textures:   make(map[AssetId]*TextureAsset),
		byPath:     make(map[string]AssetId),
		jobs:       make(chan loadJob, 64),
		results:    make(chan loadResult, 64),
		ctx:        ctx,
		cancel:     cancel,
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

func placeholderImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.SetRGBA(0, 0, color.RGBA{0xff, 0xff, 0xff, 0xff})
	return img
}

// LoadTexture registers a texture and queues its file for decoding. It
// returns at once; the asset holds a placeholder until Poll applies the
// decoded image.
func (s *AssetServer) LoadTexture(path string, opts ...TextureOption) AssetId {
	id := makeAssetId()
	tex := &TextureAsset{
		Path:   path,
		Image:  placeholderImage(),
		Repeat: [2]float32{1, 1},
	}
	for _, opt := range opts {
		opt(tex)
	}
	s.textures[id] = tex

	s.mu.Lock()
	s.byPath[filepath.Clean(path)] = id
	s.mu.Unlock()

	s.enqueue(loadJob{id: id, path: path})
	return id
}

func (s *AssetServer) enqueue(job loadJob) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.queued == s.done {
		s.queued, s.done = 0, 0
		s.events = append(s.events, LoadEvent{Kind: LoadStart, Id: job.id, Path: job.path})
	}
	s.queued++
	s.mu.Unlock()

	select {
	case s.jobs <- job:
	case <-s.ctx.Done():
	}
}

// Texture returns the asset for id.
func (s *AssetServer) Texture(id AssetId) (*TextureAsset, bool) {
	tex, ok := s.textures[id]
	return tex, ok
}

func (s *AssetServer) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case job, ok := <-s.jobs:
			if !ok {
				return
			}
			img, err := s.decode(job.path)
			select {
			case s.results <- loadResult{job: job, img: img, err: err}:
			case <-s.ctx.Done():
				return
			}
		}
	}
}

func (s *AssetServer) decode(path string) (*image.RGBA, error) {
	read := func() ([]byte, error) {
		data, err := s.readFile(path)
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, backoff.Permanent(err)
		}
		return data, err
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 50 * time.Millisecond
	policy.MaxElapsedTime = 5 * time.Second
	data, err := backoff.RetryWithData(read,
		backoff.WithContext(backoff.WithMaxRetries(policy, s.MaxRetries), s.ctx))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return toRGBA(img), nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// Poll applies finished loads and delivers pending events to Sink. Call it
// from the frame thread only.
func (s *AssetServer) Poll() []LoadEvent {
	for drained := false; !drained; {
		select {
		case res := <-s.results:
			s.apply(res)
		default:
			drained = true
		}
	}

	s.mu.Lock()
	events := s.events
	s.events = nil
	s.mu.Unlock()

	if s.Sink != nil {
		for _, ev := range events {
			s.Sink(ev)
		}
	}
	return events
}

func (s *AssetServer) apply(res loadResult) {
	tex, ok := s.textures[res.job.id]
	if ok {
		if res.err != nil {
			// keep whatever the texture showed before
			tex.Err = res.err
		} else {
			tex.Image = res.img
			tex.Loaded = true
			tex.Err = nil
			tex.Version++
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.done++
	if res.err != nil {
		s.events = append(s.events, LoadEvent{Kind: LoadError, Id: res.job.id, Path: res.job.path, Err: res.err})
	}
	s.events = append(s.events, LoadEvent{Kind: LoadProgress, Id: res.job.id, Path: res.job.path, Loaded: s.done, Total: s.queued})
	if s.done == s.queued {
		s.events = append(s.events, LoadEvent{Kind: LoadComplete, Loaded: s.done, Total: s.queued})
	}
}

// Watch reloads textures whose files change on disk.
func (s *AssetServer) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("texture watcher: %w", err)
	}

	s.mu.Lock()
	dirs := make(map[string]struct{})
	for path := range s.byPath {
		dirs[filepath.Dir(path)] = struct{}{}
	}
	s.watcher = watcher
	s.mu.Unlock()

	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	s.wg.Add(1)
	go s.watch(watcher)
	return nil
}

func (s *AssetServer) watch(watcher *fsnotify.Watcher) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			s.mu.Lock()
			id, known := s.byPath[filepath.Clean(ev.Name)]
			s.mu.Unlock()
			if known {
				s.enqueue(loadJob{id: id, path: ev.Name})
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.mu.Lock()
			s.events = append(s.events, LoadEvent{Kind: LoadError, Err: fmt.Errorf("texture watcher: %w", err)})
			s.mu.Unlock()
		}
	}
}

// Close stops the workers and the watcher. Pending loads are dropped.
func (s *AssetServer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	watcher := s.watcher
	s.mu.Unlock()

	s.cancel()
	if watcher != nil {
		watcher.Close()
	}
	s.wg.Wait()
}

// LoadDoorTextures queues the door texture set used by the textured cube.
func LoadDoorTextures(assets *AssetServer, dir string) MaterialMaps {
	path := func(name string) string {
		return filepath.Join(dir, "door", name)
	}
	linear := WithColorSpace(ColorSpaceLinear)
	return MaterialMaps{
		Color:            assets.LoadTexture(path("color.jpg"), WithColorSpace(ColorSpaceSRGB), WithWrap(WrapRepeat), WithRepeat(2, 3)),
		Alpha:            assets.LoadTexture(path("alpha.jpg"), linear),
		Height:           assets.LoadTexture(path("height.jpg"), linear),
		Normal:           assets.LoadTexture(path("normal.jpg"), linear),
		AmbientOcclusion: assets.LoadTexture(path("ambientOcclusion.jpg"), linear),
		Metalness:        assets.LoadTexture(path("metalness.jpg"), linear),
		Roughness:        assets.LoadTexture(path("roughness.jpg"), linear),
	}
}

type AssetServerModule struct {
	Workers int
	Watch   bool
}

func (mod AssetServerModule) Install(app *App, cmd *Commands) {
	server := NewAssetServer(mod.Workers)
	log := cmd.Logger().With("assets")
	server.Sink = func(ev LoadEvent) {
		logLoadEvent(log, ev)
	}
	cmd.AddResources(server, &assetWatch{enabled: mod.Watch})
	app.UseSystem(
		System(assetPollSystem).
			InStage(Prelude),
	)
}

type assetWatch struct {
	enabled bool
	started bool
}

func logLoadEvent(log Logger, ev LoadEvent) {
	switch ev.Kind {
	case LoadStart:
		log.Infof("Loading textures (%s)", ev.Path)
	case LoadProgress:
		log.Debugf("Loaded %s (%d/%d)", ev.Path, ev.Loaded, ev.Total)
	case LoadComplete:
		log.Infof("Textures loaded (%d)", ev.Total)
	case LoadError:
		log.Warnf("Texture load failed: %v", ev.Err)
	}
}

func assetPollSystem(server *AssetServer, watch *assetWatch, cmd *Commands) {
	// textures are registered during Install, so the watcher starts on the
	// first frame once every path is known
	if watch.enabled && !watch.started {
		watch.started = true
		if err := server.Watch(); err != nil {
			cmd.Logger().With("assets").Warnf("Hot reload disabled: %v", err)
		}
	}
	server.Poll()
}
