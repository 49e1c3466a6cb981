package script

import "fmt"

const schemaHint = `出力は必ずJSON。自由文禁止。
キー: variants(list)
variants[*]: variant_index(int), hook(str), body(str), cta(str), full_script(str),
captions(list[{t:number,text:string}]),
shot(object{scene,camera,tone,gesture:list[str]}),
compliance(object{no_medical_claim:boolean,no_before_after:boolean})`

// RenderPrompt builds the script-generation prompt from free-form product
// metadata and the requested variant count.
func RenderPrompt(productMeta map[string]any, targetCount int) string {
	productName := metaString(productMeta, "product_name")
	usp := metaString(productMeta, "usp")
	target := metaString(productMeta, "target")
	tone := metaString(productMeta, "tone")
	if tone == "" {
		tone = "casual"
	}

	return fmt.Sprintf(`あなたはTikTok/Reels向けUGC台本ライター。
%s

制約:
- 冒頭3秒に体験フック
- 誇大表現禁止、医療/治療の断定禁止
- 「ビフォーアフター」断定は禁止（no_before_after=true）
- トーン: %s
- ターゲット: %s
- 商品: %s
- 訴求: %s

出力:
- variants を %d 本生成
- captions は 15秒想定で3〜6行
- hook/body/ctaは短く強く`, schemaHint, tone, target, productName, usp, targetCount)
}

func metaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}
