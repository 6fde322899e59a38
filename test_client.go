package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"time"
)

const baseURL = "http://localhost:8080/api/v1"

func main() {
	// Проверяем health endpoint
	fmt.Println("Проверяем health endpoint...")
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		fmt.Printf("Ошибка при обращении к health endpoint: %v\n", err)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("Ошибка чтения ответа: %v\n", err)
		return
	}

	fmt.Printf("Health check ответ (статус %d):\n%s\n\n", resp.StatusCode, string(body))

	// Если есть тестовый кадр, отправляем его несколько раз подряд
	if len(os.Args) > 1 {
		imagePath := os.Args[1]
		frames := 5
		if len(os.Args) > 2 {
			if n, err := strconv.Atoi(os.Args[2]); err == nil && n > 0 {
				frames = n
			}
		}
		fmt.Printf("Отправляем кадр %s %d раз...\n", imagePath, frames)

		if err := testFrames(imagePath, frames); err != nil {
			fmt.Printf("Ошибка при тестировании трекинга: %v\n", err)
		}
	} else {
		fmt.Println("Для тестирования трекинга запустите: go run test_client.go <путь_к_кадру> [число_кадров]")
	}
}

func testFrames(imagePath string, frames int) error {
	// Читаем кадр
	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("ошибка чтения кадра: %w", err)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	for i := 1; i <= frames; i++ {
		result, err := sendFrame(client, imageData, i)
		if err != nil {
			return err
		}

		fmt.Printf("Кадр %d: людей %d, в бассейне %d, под водой %d, тревог %d\n",
			result.FrameIndex, result.Stats.PersonsDetected, result.Stats.SwimmersInPool,
			result.Stats.Submerged, result.Stats.ActiveAlerts)
		for _, s := range result.Swimmers {
			fmt.Printf("  %s %-12s под водой %.1f с\n", s.ID, s.Status, s.SubmergedSeconds)
		}
		if result.DetectorError != "" {
			fmt.Printf("  детектор: %s\n", result.DetectorError)
		}

		time.Sleep(time.Second)
	}
	return nil
}

type frameResult struct {
	FrameIndex int64 `json:"frame_index"`
	Swimmers   []struct {
		ID               string  `json:"id"`
		Status           string  `json:"status"`
		SubmergedSeconds float64 `json:"submerged_seconds"`
	} `json:"swimmers"`
	Stats struct {
		PersonsDetected int `json:"persons_detected"`
		SwimmersInPool  int `json:"swimmers_in_pool"`
		Submerged       int `json:"submerged"`
		ActiveAlerts    int `json:"active_alerts"`
	} `json:"stats"`
	DetectorError string `json:"detector_error"`
}

func sendFrame(client *http.Client, imageData []byte, index int) (*frameResult, error) {
	// Создаем multipart form
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	imageWriter, err := writer.CreateFormFile("image", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("ошибка создания form field: %w", err)
	}
	if _, err := imageWriter.Write(imageData); err != nil {
		return nil, fmt.Errorf("ошибка записи кадра: %w", err)
	}

	writer.WriteField("frame_index", strconv.Itoa(index))
	writer.WriteField("timestamp_ms", strconv.FormatInt(time.Now().UnixMilli(), 10))
	writer.Close()

	req, err := http.NewRequest("POST", baseURL+"/frames", &body)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка отправки запроса: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("статус %d: %s", resp.StatusCode, string(respBody))
	}

	var result frameResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("ошибка парсинга ответа: %w", err)
	}
	return &result, nil
}
