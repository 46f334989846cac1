package catalog

// DefaultPackages returns the built-in purchase catalog. Deployments can
// replace it with a catalog file; the defaults keep a fresh install sellable.
func DefaultPackages() []Package {
	return []Package{
		{
			ID:          "credits_10",
			Name:        "Starter Pack",
			Description: "10 image generation credits",
			AmountCents: 499,
			Currency:    "usd",
			Credits:     10,
		},
		{
			ID:          "credits_50",
			Name:        "Studio Pack",
			Description: "50 image generation credits",
			AmountCents: 1999,
			Currency:    "usd",
			Credits:     50,
		},
		{
			ID:          "pro_monthly",
			Name:        "Pro Monthly",
			Description: "Unlimited generations, billed monthly",
			AmountCents: 999,
			Currency:    "usd",
			Unlimited:   true,
			Interval:    "month",
		},
		{
			ID:          "pro_yearly",
			Name:        "Pro Yearly",
			Description: "Unlimited generations, billed yearly",
			AmountCents: 9999,
			Currency:    "usd",
			Unlimited:   true,
			Interval:    "year",
		},
	}
}

// DefaultPrompts returns the curated prompt library shipped with the app.
func DefaultPrompts() []Prompt {
	return []Prompt{
		{
			ID:          1,
			Title:       "Black & White Artistic Portrait",
			Description: "Sophisticated suit portrait with editorial tone",
			Prompt:      "Black and white artistic portrait of a man, with a fashionable model dressed in a sophisticated suit, black socks and shoes. He is sitting with a slightly hunched posture, looking down as if lost in thought. His facial features are the same as the original photo, like her hairstyle. It features minimalist accessories that highlight the elegant and editorial tone. The studio's clean lighting enhances textures and depth, creating an elegant, couture feel. Use the uploaded picture as reference for the face. Aspect ration: 4:5 vertical.",
			Category:    "Professional",
		},
		{
			ID:          2,
			Title:       "Studio Portrait with Glass Panel",
			Description: "Reflective studio portrait with fashion depth",
			Prompt:      "Stylized studio portrait of me (use the uploaded picture as reference for the face) leaning slightly on a large reflective glass panel. Outfit: tailored all black suit, black loafers. Pose: hand in pocket, soft confident smirk. Reflection captures double perspective. Warm rim lighting adds fashion depth. Aspect ration: 4:5 vertical.",
			Category:    "Professional",
		},
		{
			ID:          3,
			Title:       "Cinematic Editorial Portrait",
			Description: "Luxury armchair portrait with red wine mood",
			Prompt:      "A cinematic fashion editorial portrait of a stylish man (use the uploaded picture as reference for the face) sitting confidently in a modern white leather armchair with wooden accents. He wears a sharp, tailored all-white suit with matching white shoes and a plain white shirt underneath, exuding sophistication. He wears round eyeglasses that enhance his intellectual and elegant look. One hand rests casually while the other holds a glass of red wine balanced gracefully between his fingers. The background is a warm gradient of reddish-orange tones with subtle mist or fog at floor level, creating a dramatic and moody atmosphere. Lighting is soft yet directional, highlighting his sharp features and the textures of the suit. Ultra-detailed, high-fashion, editorial photography style with a refined, luxurious mood. Aspect ration: 4:5 vertical.",
			Category:    "Artistic",
		},
		{
			ID:          4,
			Title:       "Vogue Fashion Cover",
			Description: "Clean white background fashion editorial",
			Prompt:      "A white background Vogue fashion editorial cover of the portrait of a young man (use the uploaded picture as reference for the face). He wears a loose white shirt with rolled sleeves, arm partly covering his face, metallic wristwatch visible. Aspect ratio: 4:5 vertical.",
			Category:    "Professional",
		},
		{
			ID:          5,
			Title:       "Modern Advertisement Blue Chair",
			Description: "Vibrant modern advertisement with geometric patterns",
			Prompt:      "A striking, modern advertisement featuring a handsome stylish man (use the uploaded picture as reference for the face) with glasses sits confidently on a bold, modern royal blue armchair. He wears a bright cobalt blue outfit with orange geometric patterns, paired with chunky white sneakers and white socks. The background is a lue gradient with a large graph se your initial) shape. Minimalist, playiu, and modern aesthetic. Ultra-clean, vibrant, editorial look. Aspect ratio: 4:5 vertical.",
			Category:    "Artistic",
		},
		{
			ID:          6,
			Title:       "Mysterious Black & White",
			Description: "Hyper-realistic minimalist portrait with dramatic shadows",
			Prompt:      "A hyper-realistic and minimalist black-and-white portrait of a man (based on the uploaded reference), partially covering his face with his hand. The expression is intense and mysterious. Dramatic lighting creates strong shadows with Photorealistic cinematic vertical portrait (9:16).",
			Category:    "Artistic",
		},
		{
			ID:          7,
			Title:       "Hands in Pockets - Studio",
			Description: "Cinematic editorial with smoke and dramatic lighting",
			Prompt:      "Hands in Pockets - relaxed authority. A hyper-realistic cinematic editorial portrait of the uploaded person (preserve face 100%). He stands tall in a dark moody studio, facing the camera, surrounded by soft drifting smoke under a dramatic spotlight. Outfit: slate-blue luxury suit, paired with a slightly unbuttoned white silk shirt. Both hands tucked casually in pockets, shoulders relaxed, confident expression, head tilted slightly upward.",
			Category:    "Professional",
		},
		{
			ID:          8,
			Title:       "Lamborghini Lifestyle",
			Description: "High-end lifestyle portrait with luxury car",
			Prompt:      "Make my photo overhead high angle 3:4 full-body shot of a man (preserve face 100%) standing relaxed on the hood of a white Lamborghini Urus in a dim basement garage. Wearing a crisp white open collar shirt, brown trousers, polished shoes, and a leather strap watch. Soft sunbeam lighting with natural reflections on car, cinematic warm color grading, shallow depth of field, creamy bokeh, hyper-realistic 8K detail, billionaire vibe.",
			Category:    "Lifestyle",
		},
		{
			ID:          9,
			Title:       "European Street Portrait",
			Description: "Cinematic street photography in European city",
			Prompt:      "Ultra-realistic cinematic street portrait in a narrow European city street, tall stone buildings, blurred storefronts, pedestrians as soft silhouettes. Subject standing in middle of street, slightly angled, confident gaze. Wearing black overcoat + black scarf, minimal stylish vibe. Lighting: overcast daylight, smooth shadows, balanced contrast. Color grading: cinematic teal-orange, soft desaturated background, natural skin tones. Camera: DSLR 85mm lens, f/1.8, medium waist-up shot, vertical 4:5. Style: cinematic editorial, modern, confident, timeless magazine look.",
			Category:    "Lifestyle",
		},
		{
			ID:          10,
			Title:       "Relaxed Authority - Wide Suit",
			Description: "Editorial portrait with oversized luxury suit",
			Prompt:      "Prompt: Hands in Pockets - Relaxed Authority A hyper-realistic cinematic editorial portrait of the uploaded person (preserve face 100%). He stands tall in a dark moody studio,surrounded by soft drifting smoke under a dramatic spotlight.Outfit:Oversized slate-blue luxurysuit with wide-leg trousers, paired with a slightly unbuttoned white silk shirt. Both hands tucked casually in pockets, shoulders relaxed, confident expression, head tilted slightly upward.",
			Category:    "Professional",
		},
		{
			ID:          11,
			Title:       "High-End Fashion LV",
			Description: "Luxury fashion portrait with orange background",
			Prompt:      "A hyper realistic Portrait of uploaded person( preserve face 100%) wearing high-end fashion LV OUTFIT, the background is orange, the clothing is minimal, hyper realistic scene, the guy is just slightly visible due to dark shadows, and he is wearing modern fashion frames.",
			Category:    "Artistic",
		},
		{
			ID:          12,
			Title:       "Modern Charcoal Suit",
			Description: "Minimalist studio portrait with crossed arms",
			Prompt:      "A hyper-realistic portrait of a uploaded man face 100 percent reserved sitting on a tall black stool in a minimalist studio. He wears a modern charcoal-gray tailored suit with cropped trousers and a structured blazer with a high collar, paired with white sneakers. He sits with arms crossed, leaning slightly forward, looking off-camera with a serious, confident expression. Neutral-toned background enhances focus on the subject. Ultra-detailed fabric textures, realistic lighting, fashion editorial quality.",
			Category:    "Professional",
		},
	}
}

// DefaultSnapshot builds a snapshot from the built-in catalogs.
func DefaultSnapshot() *Snapshot {
	snap, err := NewSnapshot(DefaultPackages(), DefaultPrompts())
	if err != nil {
		panic(err)
	}
	return snap
}
