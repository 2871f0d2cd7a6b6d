package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/rs/zerolog/log"
)

// TextExtractor pulls printed lines off a card image.
type TextExtractor interface {
	DetectLines(ctx context.Context, image []byte) ([]string, error)
}

// DetectTextAPI is the part of the Rekognition client used here.
type DetectTextAPI interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// RekognitionTextExtractor runs AWS Rekognition DetectText on card images.
type RekognitionTextExtractor struct {
	client        DetectTextAPI
	minConfidence float32
}

// NewRekognitionTextExtractor loads the default AWS credential chain for
// region.
func NewRekognitionTextExtractor(ctx context.Context, region string) (*RekognitionTextExtractor, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}
	return NewRekognitionTextExtractorWithClient(rekognition.NewFromConfig(awsCfg)), nil
}

// NewRekognitionTextExtractorWithClient wraps an existing client.
func NewRekognitionTextExtractorWithClient(client DetectTextAPI) *RekognitionTextExtractor {
	return &RekognitionTextExtractor{client: client, minConfidence: 80}
}

// DetectLines returns LINE detections above the confidence floor, in reading
// order.
func (e *RekognitionTextExtractor) DetectLines(ctx context.Context, image []byte) ([]string, error) {
	out, err := e.client.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: image},
	})
	if err != nil {
		return nil, fmt.Errorf("rekognition detect text: %w", err)
	}

	lines := make([]string, 0, len(out.TextDetections))
	for _, d := range out.TextDetections {
		if d.Type != types.TextTypesLine {
			continue
		}
		if aws.ToFloat32(d.Confidence) < e.minConfidence {
			continue
		}
		if text := strings.TrimSpace(aws.ToString(d.DetectedText)); text != "" {
			lines = append(lines, text)
		}
	}
	log.Debug().Int("lines", len(lines)).Msg("Rekognition text detected")
	return lines, nil
}
