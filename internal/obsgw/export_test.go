package obsgw

// WriteImageData exposes the screenshot payload decoder to tests.
var WriteImageData = writeImageData
