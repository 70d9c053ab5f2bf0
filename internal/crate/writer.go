package crate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gowebpki/jcs"

	"github.com/wfrun/cratebuilder/internal/errors"
	"github.com/wfrun/cratebuilder/internal/log"
)

// marshalMetadata renders the crate graph as ro-crate-metadata.json content.
// Entities keep their insertion order in @graph; within each entity, map
// serialization yields sorted keys, so the output is fully deterministic.
func marshalMetadata(c *Crate) ([]byte, error) {
	var context any = MetadataContext
	if len(c.extraContexts) > 0 {
		ctxs := make([]any, 0, len(c.extraContexts)+1)
		ctxs = append(ctxs, MetadataContext)
		for _, extra := range c.extraContexts {
			ctxs = append(ctxs, extra)
		}
		context = ctxs
	}

	graph := make([]map[string]any, 0, len(c.entities))
	for _, e := range c.entities {
		node := make(map[string]any, len(e.Properties)+2)
		node["@id"] = e.ID
		if len(e.Types) == 1 {
			node["@type"] = e.Types[0]
		} else {
			node["@type"] = e.Types
		}
		for k, v := range e.Properties {
			node[k] = v
		}
		graph = append(graph, node)
	}

	doc := map[string]any{
		"@context": context,
		"@graph":   graph,
	}

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCrateMarshal, "crate metadata could not be serialized", err)
	}
	return append(data, '\n'), nil
}

// MetadataChecksum computes the sha256 of the RFC 8785 canonical form of the
// metadata document, so the same graph always hashes identically regardless
// of formatting.
func MetadataChecksum(metadata []byte) (string, error) {
	canonical, err := jcs.Transform(metadata)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeCrateMarshal, "crate metadata could not be canonicalized", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Write materializes the crate under dir: payload files are copied in, empty
// directory markers are created, and the metadata document is written last.
// It returns the canonical checksum of the metadata document.
func Write(c *Crate, dir string, logger *log.Logger) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(errors.ErrCodeCrateWriteFailed,
			fmt.Sprintf("output folder could not be created: %s", dir), err)
	}

	for _, destPath := range c.PayloadPaths() {
		src := c.payload[destPath]
		target := filepath.Join(dir, filepath.FromSlash(destPath))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return "", errors.Wrap(errors.ErrCodeCrateCopyFailed,
				fmt.Sprintf("payload folder could not be created: %s", filepath.Dir(target)), err)
		}
		if src.Marker {
			if err := os.WriteFile(target, nil, 0o644); err != nil {
				return "", errors.Wrap(errors.ErrCodeCrateCopyFailed,
					fmt.Sprintf("empty directory marker could not be created: %s", destPath), err)
			}
			logger.Debug("created empty directory marker", "path", destPath)
			continue
		}
		if err := copyFile(src.SourcePath, target); err != nil {
			return "", errors.Wrap(errors.ErrCodeCrateCopyFailed,
				fmt.Sprintf("payload file could not be copied: %s", src.SourcePath), err).
				WithSuggestion("check that the referenced files still exist and are readable")
		}
		logger.Debug("copied payload file", "source", src.SourcePath, "dest", destPath)
	}

	metadata, err := marshalMetadata(c)
	if err != nil {
		return "", err
	}
	metadataPath := filepath.Join(dir, MetadataFilename)
	if err := os.WriteFile(metadataPath, metadata, 0o644); err != nil {
		return "", errors.Wrap(errors.ErrCodeCrateWriteFailed,
			fmt.Sprintf("metadata document could not be written: %s", metadataPath), err)
	}
	logger.Info("wrote crate metadata", "path", metadataPath, "entities", len(c.entities))

	return MetadataChecksum(metadata)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
