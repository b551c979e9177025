package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"flightdelay/ml"
	"flightdelay/pipeline"
)

func main() {
	datasetPath := flag.String("dataset", "data/flights.csv", "training dataset CSV")
	modelPath := flag.String("model_path", "./models/delay.model", "model output path")
	testRatio := flag.Float64("test_ratio", 0.2, "test ratio")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	records, stats, err := pipeline.LoadDataset(*datasetPath, logger)
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}
	log.Printf("dataset loaded: %d records, %d skipped", stats.Loaded, stats.Skipped)

	model, err := ml.NewDelayModel(ml.DefaultFeatureSet)
	if err != nil {
		log.Fatalf("invalid feature set: %v", err)
	}
	features, labels, err := model.Preprocess(records, true)
	if err != nil {
		log.Fatalf("failed to preprocess dataset: %v", err)
	}

	trainX, trainY, testX, testY := splitDataset(features, labels, *testRatio)

	var classCount [2]int
	for _, label := range trainY {
		classCount[label]++
	}
	if classCount[0] == 0 || classCount[1] == 0 {
		log.Fatal("training split contains a single class")
	}
	total := float64(len(trainY))
	classWeights := map[int]float64{
		0: float64(classCount[1]) / total,
		1: float64(classCount[0]) / total,
	}

	classifier := ml.NewLogisticRegression()
	if err := classifier.Fit(trainX, trainY, classWeights); err != nil {
		log.Fatalf("failed to train model: %v", err)
	}

	accuracy, precision, recall := evaluateModel(classifier, testX, testY)
	log.Printf("accuracy=%.2f precision=%.2f recall=%.2f", accuracy, precision, recall)

	if err := os.MkdirAll(filepath.Dir(*modelPath), 0o755); err != nil {
		log.Fatalf("failed to create model dir: %v", err)
	}
	if err := classifier.Save(*modelPath); err != nil {
		log.Fatalf("failed to save model: %v", err)
	}

	fmt.Printf("model saved to %s\n", *modelPath)
}

func splitDataset(features [][]float64, labels []int, testRatio float64) (trainX [][]float64, trainY []int, testX [][]float64, testY []int) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}

	split := int(float64(len(features)) * (1 - testRatio))
	for i := range features {
		if i < split {
			trainX = append(trainX, features[i])
			trainY = append(trainY, labels[i])
		} else {
			testX = append(testX, features[i])
			testY = append(testY, labels[i])
		}
	}
	return trainX, trainY, testX, testY
}

func evaluateModel(classifier ml.Classifier, testX [][]float64, testY []int) (accuracy, precision, recall float64) {
	if len(testX) == 0 {
		return 0, 0, 0
	}

	var correct, truePositive, predictedPositive, actualPositive int
	for i, features := range testX {
		label, _, err := classifier.PredictLabel(features)
		if err != nil {
			continue
		}
		if label == testY[i] {
			correct++
		}
		if label == 1 {
			predictedPositive++
		}
		if testY[i] == 1 {
			actualPositive++
			if label == 1 {
				truePositive++
			}
		}
	}

	accuracy = float64(correct) / float64(len(testX))
	if predictedPositive > 0 {
		precision = float64(truePositive) / float64(predictedPositive)
	}
	if actualPositive > 0 {
		recall = float64(truePositive) / float64(actualPositive)
	}
	return accuracy, precision, recall
}
