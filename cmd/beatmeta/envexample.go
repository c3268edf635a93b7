package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func generateEnvExample(cmd *cobra.Command) error {
	fmt.Println("Generating .env.example file from current configuration...")

	content := generateEnvExampleContent(cmd)

	if err := os.WriteFile(".env.example", []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write .env.example: %w", err)
	}

	fmt.Println("Successfully generated .env.example file")
	return nil
}

func generateEnvExampleContent(cmd *cobra.Command) string {
	var content strings.Builder

	content.WriteString("# =============================================================================\n")
	content.WriteString("# beatmeta Configuration\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("#\n")
	content.WriteString("# Copy this file to .env and update with your values\n")
	content.WriteString("# All environment variables have CLI flag equivalents (use --help to see them)\n")
	content.WriteString("#\n")
	fmt.Fprintf(&content, "# Format: %s_<SETTING>=value\n", envPrefix)
	content.WriteString("# CLI equivalent: --<setting>\n")
	content.WriteString("#\n\n")

	generateSection(&content, cmd, "Beatport Account",
		"Either username and password or a stored token file is required.",
		"username", "password", "client-id", "token-file", "http-timeout")
	generateSection(&content, cmd, "Singleton Enrichment",
		"Copy release fields onto single track matches.",
		"singletons-with-album-metadata",
		"singletons-with-album-metadata-year",
		"singletons-with-album-metadata-album",
		"singletons-with-album-metadata-label",
		"singletons-with-album-metadata-catalognum",
		"singletons-with-album-metadata-albumartist",
		"singletons-with-album-metadata-track-number")
	generateSection(&content, cmd, "Artwork",
		"Width and height of 0 keep the catalog size; one value applies to both sides.",
		"art", "art-overwrite", "art-width", "art-height")
	generateSection(&content, cmd, "HTTP Server Configuration", "",
		"server-host", "server-port", "server-lookup-limit-per-minute")
	generateSection(&content, cmd, "Logging Configuration", "",
		"log-level", "log-format", "disable-redaction")

	return content.String()
}

func generateSection(content *strings.Builder, cmd *cobra.Command, title, note string, flagNames ...string) {
	content.WriteString("# -----------------------------------------------------------------------------\n")
	fmt.Fprintf(content, "# %s\n", title)
	content.WriteString("# -----------------------------------------------------------------------------\n")
	if note != "" {
		fmt.Fprintf(content, "# %s\n", note)
	}

	for _, name := range flagNames {
		usage := ""
		if f := cmd.Root().PersistentFlags().Lookup(name); f != nil {
			usage = f.Usage
		}
		fmt.Fprintf(content, "%s=%s    # %s (default: %s)\n",
			flagToEnvVar(name), getDefaultValueString(cmd, name), usage, getDefaultValueString(cmd, name))
	}
	content.WriteString("\n")
}

func flagToEnvVar(flagName string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

func getDefaultValueString(cmd *cobra.Command, flagName string) string {
	if f := cmd.Root().PersistentFlags().Lookup(flagName); f != nil {
		return f.DefValue
	}
	return ""
}
