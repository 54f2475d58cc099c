package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ayusman/mimika/internal/app"
	"github.com/ayusman/mimika/internal/infer"
	"github.com/ayusman/mimika/internal/server"
	"github.com/ayusman/mimika/internal/store"
	"github.com/ayusman/mimika/internal/tray"
)

func main() {
	var (
		cameraID     = flag.Int("camera", 0, "camera device ID")
		faceModel    = flag.String("face-model", "", "path to the YuNet face detection ONNX model")
		emotionModel = flag.String("emotion-model", "", "path to the emotion classification ONNX model")
		addr         = flag.String("addr", ":8080", "HTTP listen address")
		noTray       = flag.Bool("no-tray", false, "run without the system tray")
	)
	flag.Parse()

	fmt.Println("Mimika - Face Emotion Overlay")

	// Initialize the store
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Failed to get home directory: %v", err)
	}

	dataDir := filepath.Join(homeDir, ".mimika")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(filepath.Join(dataDir, "mimika.db"))
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	// Model paths default to ~/.mimika/models
	facePath := *faceModel
	if facePath == "" {
		facePath = filepath.Join(dataDir, "models", "face_detection_yunet_2023mar.onnx")
	}
	emotionPath := *emotionModel
	if emotionPath == "" {
		emotionPath = filepath.Join(dataDir, "models", "emotion-ferplus-8.onnx")
	}

	a := app.New(app.Config{
		Store:            st,
		CameraID:         *cameraID,
		FaceModelPath:    facePath,
		EmotionModelPath: emotionPath,
		Worker:           infer.DefaultConfig(),
	})

	if err := a.LoadModels(); err != nil {
		log.Fatalf("Failed to load models: %v", err)
	}
	defer a.CloseAdapters()

	// Restore the enabled state from the previous run
	if value, err := st.Settings().Get("detection_enabled"); err == nil {
		a.SetEnabled(value != "false")
	}

	if err := a.Start(); err != nil {
		log.Fatalf("Failed to start detection pipeline: %v", err)
	}
	defer a.Stop()

	// Find web directory
	webDir := findWebDir()
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		App:       a,
	})

	go func() {
		fmt.Printf("Starting server on %s\n", *addr)
		if err := srv.ListenAndServe(*addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	if *noTray {
		// Headless: run until interrupted
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		return
	}

	t := tray.New()
	t.OnToggle(func(enabled bool) {
		a.SetEnabled(enabled)
		value := "true"
		if !enabled {
			value = "false"
		}
		if err := st.Settings().Set("detection_enabled", value); err != nil {
			log.Printf("Failed to persist detection state: %v", err)
		}
	})
	t.OnSettings(func() {
		fmt.Printf("Settings: http://localhost%s/\n", *addr)
	})

	// Refresh the tray mood from the latest tracked faces
	stopMood := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stopMood:
				return
			case <-ticker.C:
				faces := a.LatestFaces()
				if len(faces) == 0 {
					t.SetMood("")
					continue
				}
				// Faces are ordered largest first
				t.SetMood(faces[0].Label.String())
			}
		}
	}()

	t.OnQuit(func() {
		close(stopMood)
	})

	// Blocks until quit is selected from the tray menu
	t.Run()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.mimika/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	// Check relative paths from current working directory
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".mimika", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
