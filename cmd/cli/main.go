package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	userID    string
	rootCmd   = &cobra.Command{
		Use:   "tunepipe",
		Short: "Tunepipe CLI - media fetching and audio identification",
		Long:  `A command-line interface for the tunepipe media pipeline: fetch media from social links, identify songs in audio files, and search the music catalog.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "cli", "User ID for rate limiting")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(identifyCmd)
	rootCmd.AddCommand(searchCmd)

	fetchCmd.Flags().Bool("audio", false, "Extract audio only")
	identifyCmd.Flags().String("hint", "", "Free-text hint (e.g. caption) to seed fallback search")
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [url]",
	Short: "Download media from a social link",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		audioOnly, _ := cmd.Flags().GetBool("audio")

		payload := map[string]interface{}{
			"url":        args[0],
			"user_id":    userID,
			"audio_only": audioOnly,
		}

		data, _ := json.Marshal(payload)
		resp, err := http.Post(serverURL+"/api/v1/media/link", "application/json", bytes.NewBuffer(data))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var result struct {
			Result struct {
				Success    bool     `json:"success"`
				FilePaths  []string `json:"file_paths"`
				Platform   string   `json:"platform"`
				MethodUsed string   `json:"method_used"`
				Caption    string   `json:"caption"`
			} `json:"result"`
			Guidance string  `json:"guidance"`
			SizeMB   float64 `json:"size_mb"`
		}
		json.Unmarshal(body, &result)

		if !result.Result.Success {
			fmt.Printf("Download failed (%s)\n", result.Result.Platform)
			if result.Guidance != "" {
				fmt.Println(result.Guidance)
			}
			os.Exit(1)
		}

		fmt.Printf("Downloaded via %s:\n", result.Result.MethodUsed)
		for _, p := range result.Result.FilePaths {
			fmt.Printf("  %s\n", p)
		}
		if result.Result.Caption != "" {
			fmt.Printf("Caption: %s\n", result.Result.Caption)
		}
		if result.Guidance != "" {
			fmt.Println(result.Guidance)
		}
	},
}

var identifyCmd = &cobra.Command{
	Use:   "identify [file]",
	Short: "Identify the song in an audio file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		hint, _ := cmd.Flags().GetString("hint")

		f, err := os.Open(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()

		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, err := w.CreateFormFile("file", filepath.Base(args[0]))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if _, err := io.Copy(part, f); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if hint != "" {
			w.WriteField("hint", hint)
		}
		w.Close()

		resp, err := http.Post(serverURL+"/api/v1/media/identify", w.FormDataContentType(), &buf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var result struct {
			Result string `json:"result"`
		}
		json.Unmarshal(body, &result)
		fmt.Println(result.Result)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Search the music catalog by text",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		payload := map[string]string{
			"query":   strings.Join(args, " "),
			"user_id": userID,
		}

		data, _ := json.Marshal(payload)
		resp, err := http.Post(serverURL+"/api/v1/media/search", "application/json", bytes.NewBuffer(data))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var result struct {
			Message   string `json:"message"`
			AudioPath string `json:"audio_path"`
		}
		json.Unmarshal(body, &result)
		fmt.Println(result.Message)
		if result.AudioPath != "" {
			fmt.Printf("Audio saved to: %s\n", result.AudioPath)
		}
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
