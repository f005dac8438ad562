package engines

import "github.com/fatih/color"

// Redirect-only engines. They never call the backend; the result is the
// search page URL for the image.

const (
	googleImagesURL = "http://images.google.com/searchbyimage?image_url="
	tinEyeURL       = "https://www.tineye.com/search?url="
	yandexURL       = "https://yandex.com/images/search?rpt=imageview&url="
	bingURL         = "https://www.bing.com/images/searchbyimage?cbir=sbi&imgurl="
	imgOpsURL       = "http://imgops.com/"
	karmaDecayURL   = "http://karmadecay.com/search?q="
)

func NewGoogleImages() *Basic {
	return NewBasic("Google Images", GoogleImages, color.FgBlue, googleImagesURL)
}

func NewTinEye() *Basic {
	return NewBasic("TinEye", TinEye, color.FgHiGreen, tinEyeURL)
}

func NewYandex() *Basic {
	return NewBasic("Yandex", Yandex, color.FgHiRed, yandexURL)
}

func NewBing() *Basic {
	return NewBasic("Bing", Bing, color.FgHiBlue, bingURL)
}

func NewImgOps() *Basic {
	return NewBasic("ImgOps", ImgOps, color.FgHiMagenta, imgOpsURL)
}

func NewKarmaDecay() *Basic {
	return NewBasic("KarmaDecay", KarmaDecay, color.FgYellow, karmaDecayURL)
}
